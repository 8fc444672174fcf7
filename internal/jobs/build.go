package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/storage"
)

// finalizeTimeout bounds persisting and reporting an outcome once the build is over.
const finalizeTimeout = 2 * time.Minute

// BuildJob drives one request through execution, persistence and status delivery.
type BuildJob struct {
	executor      core.Executor
	store         storage.Store
	reporter      core.StatusReporter
	reportPending bool
	logger        *slog.Logger
}

// NewBuildJob creates a BuildJob. When reportPending is set a pending status is
// published before the build starts.
func NewBuildJob(executor core.Executor, store storage.Store, reporter core.StatusReporter, reportPending bool, logger *slog.Logger) *BuildJob {
	if executor == nil {
		panic("executor cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if reporter == nil {
		panic("status reporter cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &BuildJob{
		executor:      executor,
		store:         store,
		reporter:      reporter,
		reportPending: reportPending,
		logger:        logger,
	}
}

// Run executes the build for task, saves the outcome and then reports it. A save
// failure does not prevent the report. The returned error joins persistence and
// delivery failures; a failed build is not an error.
func (j *BuildJob) Run(ctx context.Context, task *core.WorkerTask) error {
	req := task.Request
	logger := j.logger.With("task_id", task.ID, "repo", req.FullName(), "commit", req.CommitSHA)

	if j.reportPending {
		if err := j.reporter.Pending(ctx, req); err != nil {
			logger.Warn("failed to publish pending status", "error", err)
		}
	}

	logger.Info("starting build", "branch", req.BranchName, "worker_id", task.WorkerID)
	outcome := j.executor.Execute(ctx, req)
	if outcome == nil {
		now := time.Now()
		outcome = &core.BuildOutcome{
			CommitSHA:   req.CommitSHA,
			RepoOwner:   req.RepoOwner,
			RepoName:    req.RepoName,
			BranchName:  req.BranchName,
			Status:      core.StatusFailed,
			StartedAt:   task.StartedAt,
			CompletedAt: now,
			Err:         fmt.Errorf("%w: executor returned no outcome", core.ErrExecution),
		}
	}
	logger.Info("build completed", "status", outcome.Status, "duration", outcome.Duration(), "cause", outcome.Err)

	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	var errs []error
	if err := j.store.Save(finalizeCtx, outcome); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrPersistence, err)
		logger.Error("failed to persist build outcome", "error", err)
		errs = append(errs, err)
	}

	if err := j.reporter.Report(finalizeCtx, outcome); err != nil {
		if !errors.Is(err, core.ErrDelivery) {
			err = fmt.Errorf("%w: %w", core.ErrDelivery, err)
		}
		logger.Error("failed to deliver build status", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
