package core

import "errors"

// Failure taxonomy shared across the pipeline.
var (
	ErrSetup       = errors.New("setup failure")
	ErrExecution   = errors.New("execution failure")
	ErrTimeout     = errors.New("execution timed out")
	ErrPersistence = errors.New("persistence failure")
	ErrDelivery    = errors.New("delivery failure")

	ErrQueueFull         = errors.New("job queue is full")
	ErrDuplicateJob      = errors.New("a build for this commit is already queued or running")
	ErrDispatcherStopped = errors.New("dispatcher is stopped")
)
