// Package handler provides HTTP handlers for the CI-Warden application.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/ci-warden/internal/core"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	secret     []byte
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler. An empty secret disables
// signature verification.
func NewWebhookHandler(secret string, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:     []byte(secret),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes GitHub webhook requests.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Error("invalid webhook payload", "error", err)
		http.Error(w, "Invalid payload", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	switch eventType {
	case "push", "ping":
	default:
		h.logger.Debug("ignoring unhandled webhook event type", "type", eventType)
		_, _ = fmt.Fprint(w, "Event type not handled")
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Error("could not parse webhook", "type", eventType, "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	case *github.PushEvent:
		h.handlePush(r.Context(), w, e)
	case *github.PingEvent:
		h.logger.Info("received webhook ping", "hook_id", e.GetHookID())
		_, _ = fmt.Fprint(w, "pong")
	}
}

// handlePush turns a push event into a build job and queues it.
func (h *WebhookHandler) handlePush(ctx context.Context, w http.ResponseWriter, event *github.PushEvent) {
	req, err := core.JobRequestFromPush(event)
	if err != nil {
		if errors.Is(err, core.ErrIgnoredEvent) {
			h.logger.Debug("ignoring push", "reason", err.Error(), "repo", event.GetRepo().GetFullName())
			_, _ = fmt.Fprint(w, "Push ignored")
			return
		}
		h.logger.Warn("rejecting malformed push event", "error", err, "repo", event.GetRepo().GetFullName())
		http.Error(w, "Malformed push event: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.Submit(ctx, req); err != nil {
		h.logger.Error("failed to queue build job", "error", err, "repo", req.FullName(), "commit", req.CommitSHA)
		switch {
		case errors.Is(err, core.ErrDuplicateJob):
			http.Error(w, "Build already queued for this commit", http.StatusConflict)
		case errors.Is(err, core.ErrQueueFull), errors.Is(err, core.ErrDispatcherStopped):
			http.Error(w, "Build queue unavailable", http.StatusServiceUnavailable)
		default:
			http.Error(w, "Failed to queue build job", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("build job queued", "repo", req.FullName(), "branch", req.BranchName, "commit", req.CommitSHA)
	w.WriteHeader(http.StatusAccepted)
	_, _ = fmt.Fprint(w, "Build job accepted")
}
