// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
)

// JobDispatcher defines the contract for a system that can accept and queue
// build jobs for asynchronous processing. This interface decouples the
// event source (e.g., a webhook handler) from the job execution mechanism.
type JobDispatcher interface {
	// Submit accepts a JobRequest and queues it for processing. It never waits
	// for a build to run. It returns ErrQueueFull when a bounded queue is at
	// capacity, ErrDuplicateJob when duplicate suppression rejects the request,
	// and ErrDispatcherStopped after shutdown has begun.
	Submit(ctx context.Context, req *JobRequest) error
}

// Job represents the unit of work a dispatcher worker drives to completion for
// a single dequeued request.
type Job interface {
	// Run executes the job's logic for one task. Failures of the build itself are
	// data, not errors; the returned error reports pipeline problems such as an
	// outcome that could not be persisted or delivered.
	Run(ctx context.Context, task *WorkerTask) error
}

// Executor builds and tests a single commit in isolation.
//
//go:generate mockgen -destination=../../mocks/mock_executor.go -package=mocks . Executor
type Executor interface {
	// Execute never returns nil and never panics. Every failure is folded into a
	// FAILED outcome whose Err field carries the classified cause.
	Execute(ctx context.Context, req *JobRequest) *BuildOutcome
}

// StatusReporter publishes build status markers on the remote commit.
//
//go:generate mockgen -destination=../../mocks/mock_status_reporter.go -package=mocks . StatusReporter
type StatusReporter interface {
	// Pending marks the commit as being built. It is best effort.
	Pending(ctx context.Context, req *JobRequest) error
	// Report publishes the final outcome. A returned error wraps ErrDelivery.
	Report(ctx context.Context, outcome *BuildOutcome) error
}
