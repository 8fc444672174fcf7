// Package executor implements the Build Executor: it materializes a commit in an
// isolated workspace, runs the test command there and classifies the outcome.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/gitutil"
)

const (
	maxLineBytes    = 1 << 20
	readBufferBytes = 64 * 1024
	// waitDelay bounds how long output pipes may stay open after the test
	// process exits or is killed, e.g. when a grandchild inherited them.
	waitDelay = 5 * time.Second
)

// Fetcher materializes a repository at a branch and commit into path.
type Fetcher interface {
	Fetch(ctx context.Context, repoURL, branch, sha, path, token string) error
	HeadSHA(path string) (string, error)
}

// Config controls how builds are run.
type Config struct {
	WorkspaceRoot  string
	TestCommand    string
	FailureMarkers []string
	Timeout        time.Duration
	FetchTimeout   time.Duration
	MaxLogBytes    int
	GitBaseURL     string
	// Token authenticates clones of private repositories. Optional.
	Token string
}

// ConfigFrom derives the executor settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		WorkspaceRoot:  cfg.Build.WorkspaceRoot,
		TestCommand:    cfg.Build.TestCommand,
		FailureMarkers: cfg.Build.FailureMarkers,
		Timeout:        cfg.Build.Timeout,
		FetchTimeout:   cfg.Build.FetchTimeout,
		MaxLogBytes:    cfg.Build.MaxLogBytes,
		GitBaseURL:     cfg.Build.GitBaseURL,
		Token:          cfg.GitHub.Token,
	}
}

// Executor implements core.Executor.
type Executor struct {
	cfg        Config
	fetcher    Fetcher
	runLog     RunLog
	classifier *Classifier
	logger     *slog.Logger
	now        func() time.Time
	waitDelay  time.Duration
}

// New creates an Executor. The default failure markers are compiled once here.
func New(cfg Config, fetcher Fetcher, runLog RunLog, logger *slog.Logger) (*Executor, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 || cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("build and fetch timeouts must be positive")
	}
	classifier, err := NewClassifier(cfg.FailureMarkers)
	if err != nil {
		return nil, err
	}
	return &Executor{
		cfg:        cfg,
		fetcher:    fetcher,
		runLog:     runLog,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
		waitDelay:  waitDelay,
	}, nil
}

// Execute runs one build. It never returns nil and recovers from panics so that a
// single broken build cannot take down its worker.
func (e *Executor) Execute(ctx context.Context, req *core.JobRequest) (outcome *core.BuildOutcome) {
	outcome = &core.BuildOutcome{StartedAt: e.now()}
	if req != nil {
		outcome.CommitSHA = req.CommitSHA
		outcome.RepoOwner = req.RepoOwner
		outcome.RepoName = req.RepoName
		outcome.BranchName = req.BranchName
	}
	logger := e.logger.With("repo", outcome.RepoOwner+"/"+outcome.RepoName, "commit", outcome.CommitSHA)

	out := &capture{
		source:  logSource(outcome),
		runLog:  e.runLog,
		limit:   e.cfg.MaxLogBytes,
		now:     e.now,
		onError: func(err error) { logger.Error("failed to append to run log", "error", err) },
	}
	fail := func(cause error, format string, args ...any) {
		out.diag(format, args...)
		outcome.Status = core.StatusFailed
		outcome.Err = cause
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("build panicked", "panic", r)
			fail(fmt.Errorf("%w: panic: %v", core.ErrExecution, r), "internal error: %v", r)
		}
		out.flush()
		outcome.LogText = out.String()
		outcome.CompletedAt = e.now()
		logger.Info("build finished", "status", outcome.Status, "duration", outcome.Duration(), "error", outcome.Err)
	}()

	if err := req.Validate(); err != nil {
		fail(fmt.Errorf("%w: %w", core.ErrSetup, err), "invalid job request: %v", err)
		return outcome
	}

	ws, err := AcquireWorkspace(e.cfg.WorkspaceRoot, workspaceName(req))
	if err != nil {
		fail(fmt.Errorf("%w: %w", core.ErrSetup, err), "workspace preparation failed: %v", err)
		return outcome
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logger.Error("failed to remove workspace", "path", ws.Dir, "error", err)
		}
	}()

	srcDir := ws.Path("src")
	repoURL := gitutil.RepoURL(e.cfg.GitBaseURL, req.RepoOwner, req.RepoName)
	logger.Info("fetching source", "url", repoURL, "branch", req.BranchName)

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	err = e.fetcher.Fetch(fetchCtx, repoURL, req.BranchName, req.CommitSHA, srcDir, e.cfg.Token)
	cancel()
	if err != nil {
		fail(fmt.Errorf("%w: source fetch: %w", core.ErrSetup, err), "source fetch failed for %s (branch %s): %v", repoURL, req.BranchName, err)
		return outcome
	}

	if head, err := e.fetcher.HeadSHA(srcDir); err != nil {
		logger.Warn("failed to resolve checked out commit", "error", err)
	} else {
		out.diag("checked out %s on branch %s", head, req.BranchName)
	}

	command, classifier, err := e.resolveBuild(srcDir)
	if err != nil {
		fail(fmt.Errorf("%w: %w", core.ErrSetup, err), "invalid %s: %v", config.RepoConfigFile, err)
		return outcome
	}

	out.diag("running %q", command)
	res := e.run(ctx, req, srcDir, command, classifier, out)

	switch {
	case res.timedOut:
		fail(fmt.Errorf("%w: %w after %s", core.ErrExecution, core.ErrTimeout, e.cfg.Timeout),
			"build timed out after %s and was terminated", e.cfg.Timeout)
	case res.cancelled:
		fail(fmt.Errorf("%w: %w", core.ErrExecution, ctx.Err()), "build cancelled: %v", ctx.Err())
	case res.startErr != nil:
		fail(fmt.Errorf("%w: %w", core.ErrExecution, res.startErr), "failed to start test command: %v", res.startErr)
	case res.readErr != nil:
		fail(fmt.Errorf("%w: reading output: %w", core.ErrExecution, res.readErr),
			"build output could not be read to the end (exit code %d): %v", res.exitCode, res.readErr)
	default:
		outcome.Status = Classify(res.exitCode, res.marker != "")
		if outcome.Status == core.StatusFailed {
			reason := fmt.Sprintf("exit code %d", res.exitCode)
			if res.marker != "" {
				reason = fmt.Sprintf("failure marker %q (exit code %d)", res.marker, res.exitCode)
			}
			fail(fmt.Errorf("%w: %s", core.ErrExecution, reason), "build failed: %s", reason)
		}
	}
	if res.pipeErr != nil {
		out.diag("output stayed open after the command exited; leftover processes were killed")
	}
	return outcome
}

// resolveBuild applies the repository's .ci-warden.yml, if any, over the server defaults.
func (e *Executor) resolveBuild(srcDir string) (string, *Classifier, error) {
	repoCfg, err := config.LoadRepoConfig(srcDir)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return "", nil, err
	}

	command := e.cfg.TestCommand
	if repoCfg.TestCommand != "" {
		command = repoCfg.TestCommand
	}
	classifier := e.classifier
	if len(repoCfg.FailureMarkers) > 0 {
		if classifier, err = NewClassifier(repoCfg.FailureMarkers); err != nil {
			return "", nil, err
		}
	}
	return command, classifier, nil
}

type runResult struct {
	exitCode  int
	marker    string
	timedOut  bool
	cancelled bool
	startErr  error
	// readErr means the output could not be read to the end.
	readErr error
	// pipeErr is set when processes left behind by the command held its output open.
	pipeErr error
}

// run executes command through the shell in dir, streaming combined stdout and
// stderr line by line into out while scanning for failure markers. The shell runs
// in its own process group; everything in that group is killed on timeout and once
// the shell exits.
func (e *Executor) run(ctx context.Context, req *core.JobRequest, dir, command string, classifier *Classifier, out *capture) runResult {
	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"CI=true",
		"CI_WARDEN_REPOSITORY="+req.FullName(),
		"CI_WARDEN_BRANCH="+req.BranchName,
		"CI_WARDEN_COMMIT="+req.CommitSHA,
	)
	cmd.WaitDelay = e.waitDelay
	isolateProcessGroup(cmd)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return runResult{exitCode: -1, startErr: err}
	}

	type scanResult struct {
		marker string
		err    error
	}
	scanned := make(chan scanResult, 1)
	go func() {
		marker, err := scanOutput(pr, classifier, out)
		if err != nil {
			// Keep the pipe drained so the process is never blocked on a write.
			_, _ = io.Copy(io.Discard, pr)
		}
		scanned <- scanResult{marker: marker, err: err}
	}()

	waitErr := cmd.Wait()
	if err := killProcessGroup(cmd); err != nil {
		e.logger.Warn("failed to kill leftover build processes", "pid", cmd.Process.Pid, "error", err)
	}
	_ = pw.Close()
	scan := <-scanned

	res := runResult{exitCode: -1, marker: scan.marker, readErr: scan.err}
	if cmd.ProcessState != nil {
		res.exitCode = cmd.ProcessState.ExitCode()
	}
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.timedOut = true
	case ctx.Err() != nil:
		res.cancelled = true
	case waitErr != nil && errors.Is(waitErr, exec.ErrWaitDelay):
		res.pipeErr = waitErr
	}
	return res
}

// scanOutput reads r to the end, forwarding every line to out and returning the
// first line that matches a failure marker. Lines longer than maxLineBytes are
// split into chunks and every chunk is matched on its own.
func scanOutput(r io.Reader, classifier *Classifier, out *capture) (string, error) {
	reader := bufio.NewReaderSize(r, readBufferBytes)
	var (
		marker string
		line   []byte
	)
	emit := func() {
		text := string(line)
		line = line[:0]
		out.add(text)
		if marker == "" && classifier.Match(text) {
			marker = text
		}
	}
	for {
		chunk, isPrefix, err := reader.ReadLine()
		line = append(line, chunk...)
		if err != nil {
			if len(line) > 0 {
				emit()
			}
			if errors.Is(err, io.EOF) {
				return marker, nil
			}
			return marker, err
		}
		if !isPrefix || len(line) >= maxLineBytes {
			emit()
		}
	}
}

func workspaceName(req *core.JobRequest) string {
	return fmt.Sprintf("%s-%s-%s-%s", req.RepoOwner, req.RepoName, shortSHA(req.CommitSHA), uuid.NewString()[:8])
}

func logSource(o *core.BuildOutcome) string {
	return fmt.Sprintf("%s/%s@%s", o.RepoOwner, o.RepoName, shortSHA(o.CommitSHA))
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
