package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
)

const (
	StateSuccess = "success"
	StateFailure = "failure"
	StatePending = "pending"

	maxDescriptionLen = 140
	defaultMaxDelay   = time.Minute
)

// DeliveryError describes a status update that could not be delivered.
// It matches core.ErrDelivery with errors.Is.
type DeliveryError struct {
	StatusCode int // 0 when no HTTP response was received
	Attempts   int
	// URL is the request URL of the last attempt, when known.
	URL        string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("status delivery failed with HTTP %d after %d attempt(s): %v", e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("status delivery failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{core.ErrDelivery, e.Err}
}

// ReporterConfig controls status text and the retry policy.
type ReporterConfig struct {
	Context     string
	PublicURL   string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// ReporterConfigFrom derives the reporter settings from the application config.
func ReporterConfigFrom(cfg *config.Config) ReporterConfig {
	return ReporterConfig{
		Context:     cfg.Reporter.Context,
		PublicURL:   cfg.Server.PublicURL,
		MaxAttempts: cfg.Reporter.MaxAttempts,
		BaseDelay:   cfg.Reporter.BaseDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// StatusReporter implements core.StatusReporter on top of the commit status API.
type StatusReporter struct {
	client Client
	cfg    ReporterConfig
	logger *slog.Logger
	gaveUp atomic.Int64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewStatusReporter creates a StatusReporter.
func NewStatusReporter(client Client, cfg ReporterConfig, logger *slog.Logger) *StatusReporter {
	if client == nil {
		panic("github client cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	return &StatusReporter{client: client, cfg: cfg, logger: logger, sleep: sleepContext}
}

// GaveUp returns how many final status reports were abandoned undelivered.
func (r *StatusReporter) GaveUp() int64 {
	return r.gaveUp.Load()
}

// Pending marks the commit as being built. It makes a single attempt.
func (r *StatusReporter) Pending(ctx context.Context, req *core.JobRequest) error {
	status := r.newStatus(StatePending, "CI Build running", req.CommitSHA)
	return r.deliver(ctx, req.RepoOwner, req.RepoName, req.CommitSHA, status, 1)
}

// Report publishes the final state of outcome, retrying transient failures with
// exponential backoff. When delivery is abandoned a "status delivery gave up"
// event is logged and counted.
func (r *StatusReporter) Report(ctx context.Context, outcome *core.BuildOutcome) error {
	state, description := StateFailure, "CI Build failed"
	if outcome.Succeeded() {
		state, description = StateSuccess, "CI Build passed"
	}
	status := r.newStatus(state, description, outcome.CommitSHA)

	err := r.deliver(ctx, outcome.RepoOwner, outcome.RepoName, outcome.CommitSHA, status, r.cfg.MaxAttempts)
	if err != nil {
		r.gaveUp.Add(1)
		var de *DeliveryError
		errors.As(err, &de)
		r.logger.Error("status delivery gave up",
			"repo", outcome.RepoOwner+"/"+outcome.RepoName,
			"commit", outcome.CommitSHA,
			"state", state,
			"attempts", de.Attempts,
			"status_code", de.StatusCode,
			"url", de.URL,
			"error", de.Err,
		)
	}
	return err
}

func (r *StatusReporter) newStatus(state, description, sha string) *github.RepoStatus {
	if len(description) > maxDescriptionLen {
		description = description[:maxDescriptionLen]
	}
	status := &github.RepoStatus{
		State:       github.Ptr(state),
		Description: github.Ptr(description),
		Context:     github.Ptr(r.cfg.Context),
	}
	if r.cfg.PublicURL != "" {
		status.TargetURL = github.Ptr(fmt.Sprintf("%s/api/v1/builds/%s", r.cfg.PublicURL, sha))
	}
	return status
}

// deliver posts status, retrying transient failures up to maxAttempts times.
// Any response code >= 400 is a failure.
func (r *StatusReporter) deliver(ctx context.Context, owner, repo, sha string, status *github.RepoStatus, maxAttempts int) error {
	logger := r.logger.With("repo", owner+"/"+repo, "commit", sha, "state", status.GetState())

	var last *DeliveryError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.backoff(attempt-1, last.Err)
			logger.Warn("status delivery failed, retrying",
				"attempt", attempt-1,
				"max_attempts", maxAttempts,
				"status_code", last.StatusCode,
				"delay", delay,
				"error", last.Err,
			)
			if err := r.sleep(ctx, delay); err != nil {
				last.Err = errors.Join(last.Err, err)
				return last
			}
		}

		resp, err := r.client.CreateStatus(ctx, owner, repo, sha, status)
		code := 0
		if resp != nil && resp.Response != nil {
			code = resp.StatusCode
		}
		if err == nil && code < http.StatusBadRequest {
			logger.Info("commit status delivered", "attempt", attempt, "status_code", code)
			return nil
		}
		if err == nil {
			err = fmt.Errorf("unexpected response status %d", code)
		}

		last = &DeliveryError{StatusCode: code, Attempts: attempt, URL: requestURL(resp, err), Err: err}
		if !retryable(ctx, code, err) {
			logger.Error("status delivery rejected",
				"attempt", attempt,
				"status_code", code,
				"url", last.URL,
				"error", err,
			)
			return last
		}
	}
	return last
}

// backoff returns BaseDelay * 2^(n-1), capped at MaxDelay. A server supplied
// retry-after hint takes precedence when it is longer.
func (r *StatusReporter) backoff(n int, err error) time.Duration {
	delay := r.cfg.BaseDelay * time.Duration(1<<(n-1))
	if delay <= 0 || delay > r.cfg.MaxDelay {
		delay = r.cfg.MaxDelay
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) && abuse.RetryAfter != nil && *abuse.RetryAfter > delay {
		delay = min(*abuse.RetryAfter, r.cfg.MaxDelay)
	}
	return delay
}

// retryable reports whether a failed attempt may succeed if repeated: network
// errors, 5xx, 408, 429 and GitHub rate limiting.
func retryable(ctx context.Context, code int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rateLimit *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &rateLimit) || errors.As(err, &abuse) {
		return true
	}
	switch {
	case code == 0:
		return true
	case code >= http.StatusInternalServerError:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	}
	return false
}

func requestURL(resp *github.Response, err error) string {
	if resp != nil && resp.Response != nil && resp.Request != nil {
		return resp.Request.URL.String()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.URL
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
