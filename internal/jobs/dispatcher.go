// Package jobs runs build jobs asynchronously on a bounded pool of workers.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sevigo/ci-warden/internal/core"
)

// Config sizes the worker pool and its queue.
type Config struct {
	MaxWorkers int
	// QueueCapacity bounds the number of waiting jobs. Zero means unbounded.
	QueueCapacity int
	// DedupeInFlight rejects a request whose commit is already queued or running.
	DedupeInFlight bool
}

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	Active    int64 `json:"in_flight"`
	Submitted int64 `json:"submitted"`
	Processed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Dispatcher implements core.JobDispatcher and manages a pool of worker goroutines
// that drive queued build requests to completion.
type Dispatcher struct {
	job        core.Job       // Job implementation executed by each worker.
	queue      *queue         // FIFO of accepted tasks.
	maxWorkers int            // Number of concurrent workers.
	wg         sync.WaitGroup // Tracks active workers for graceful shutdown.
	logger     *slog.Logger

	dedupe   bool
	mu       sync.Mutex
	inFlight map[string]struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error

	active    atomic.Int64
	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher initializes a dispatcher and starts its workers.
// If cfg.MaxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(job core.Job, cfg Config, logger *slog.Logger) *Dispatcher {
	if job == nil {
		panic("job cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		job:        job,
		queue:      newQueue(cfg.QueueCapacity),
		maxWorkers: cfg.MaxWorkers,
		logger:     logger,
		dedupe:     cfg.DedupeInFlight,
		inFlight:   make(map[string]struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.startWorkers()
	return d
}

// startWorkers launches maxWorkers goroutines to process jobs from the queue.
func (d *Dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes tasks from the queue until it is closed and empty.
func (d *Dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting build worker", "id", workerID)

	for {
		task, ok := d.queue.pop()
		if !ok {
			break
		}
		d.processTask(workerID, task)
	}

	d.logger.Info("shutting down build worker", "id", workerID)
}

// processTask runs the build job for one task. A failing or panicking job is
// logged and the worker moves on to the next task.
func (d *Dispatcher) processTask(workerID int, task *core.WorkerTask) {
	task.WorkerID = workerID
	task.StartedAt = time.Now()
	req := task.Request

	d.active.Add(1)
	defer func() {
		d.active.Add(-1)
		d.processed.Add(1)
		d.release(req.CommitSHA)
		if r := recover(); r != nil {
			d.failed.Add(1)
			d.logger.Error("build job panicked", "task_id", task.ID, "repo", req.FullName(), "commit", req.CommitSHA, "panic", r)
		}
	}()

	d.logger.Info("worker processing job",
		"worker_id", workerID,
		"task_id", task.ID,
		"repo", req.FullName(),
		"commit", req.CommitSHA,
		"waited", task.StartedAt.Sub(task.EnqueuedAt),
	)

	if err := d.job.Run(d.ctx, task); err != nil {
		d.failed.Add(1)
		d.logger.Error("build job failed",
			"task_id", task.ID,
			"repo", req.FullName(),
			"commit", req.CommitSHA,
			"error", err,
		)
	}
}

// Submit queues a build request for processing by a worker. It returns as soon
// as the request is queued and never waits for the build itself.
func (d *Dispatcher) Submit(_ context.Context, req *core.JobRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid job request: %w", err)
	}
	if err := d.reserve(req.CommitSHA); err != nil {
		return err
	}

	task := core.NewWorkerTask(req)
	depth, err := d.queue.push(task)
	if err != nil {
		d.release(req.CommitSHA)
		d.logger.Warn("rejected build job", "repo", req.FullName(), "commit", req.CommitSHA, "error", err)
		return err
	}
	d.submitted.Add(1)

	d.logger.Info("queued build job",
		"task_id", task.ID,
		"repo", req.FullName(),
		"branch", req.BranchName,
		"commit", req.CommitSHA,
		"queue_depth", depth,
	)
	return nil
}

func (d *Dispatcher) reserve(sha string) error {
	if !d.dedupe {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inFlight[sha]; ok {
		return fmt.Errorf("%w: %s", core.ErrDuplicateJob, sha)
	}
	d.inFlight[sha] = struct{}{}
	return nil
}

func (d *Dispatcher) release(sha string) {
	if !d.dedupe {
		return
	}
	d.mu.Lock()
	delete(d.inFlight, sha)
	d.mu.Unlock()
}

// Stats returns current queue and worker counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Workers:   d.maxWorkers,
		Queued:    d.queue.size(),
		Active:    d.active.Load(),
		Submitted: d.submitted.Load(),
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Stop stops accepting new jobs and waits for queued and running jobs to finish.
// If ctx expires first, jobs that have not started are dropped, running builds
// are cancelled, and ctx.Err() is returned once the workers have exited.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping dispatcher and waiting for jobs to finish", "queued", d.queue.size())
		d.queue.close()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			d.logger.Info("all build jobs have finished")
		case <-ctx.Done():
			dropped := d.queue.drain()
			d.dropped.Add(int64(len(dropped)))
			for _, task := range dropped {
				d.release(task.Request.CommitSHA)
				d.logger.Warn("dropping queued build job on shutdown", "task_id", task.ID, "repo", task.Request.FullName(), "commit", task.Request.CommitSHA)
			}
			d.cancel()
			<-done
			d.stopErr = ctx.Err()
			d.logger.Warn("dispatcher stopped before all jobs finished", "dropped", len(dropped))
		}
		d.cancel()
	})
	return d.stopErr
}
