package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/storage"
)

// BuildsHandler serves the build history.
type BuildsHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewBuildsHandler(store storage.Store, logger *slog.Logger) *BuildsHandler {
	return &BuildsHandler{store: store, logger: logger}
}

// List returns every stored outcome, newest first. Log text is included only
// with ?logs=true.
func (h *BuildsHandler) List(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.store.GetAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list builds", "error", err)
		http.Error(w, "Failed to list builds", http.StatusInternalServerError)
		return
	}

	withLogs, _ := strconv.ParseBool(r.URL.Query().Get("logs"))
	if !withLogs {
		for _, o := range outcomes {
			o.LogText = ""
		}
	}
	writeJSON(w, http.StatusOK, outcomes, h.logger)
}

// Get returns the outcome for one commit.
func (h *BuildsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sha := chi.URLParam(r, "commitSHA")
	outcome, err := h.store.GetByCommit(r.Context(), sha)
	if err != nil {
		h.writeStoreError(w, sha, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome, h.logger)
}

// Delete removes the outcome for one commit.
func (h *BuildsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sha := chi.URLParam(r, "commitSHA")
	if err := h.store.Delete(r.Context(), sha); err != nil {
		h.writeStoreError(w, sha, err)
		return
	}
	h.logger.Info("deleted build outcome", "commit", sha)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BuildsHandler) writeStoreError(w http.ResponseWriter, sha string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Build not found", http.StatusNotFound)
		return
	}
	h.logger.Error("build store request failed", "commit", sha, "error", err)
	http.Error(w, "Failed to access build store", http.StatusInternalServerError)
}

// QueueStats exposes dispatcher counters.
type QueueStats interface {
	Stats() jobs.Stats
}

// DeliveryStats exposes how many status reports were abandoned.
type DeliveryStats interface {
	GaveUp() int64
}

type statsResponse struct {
	jobs.Stats
	StatusDeliveryGaveUp int64 `json:"status_delivery_gave_up"`
}

// NewStatsHandler returns a handler reporting queue and delivery counters.
func NewStatsHandler(queue QueueStats, delivery DeliveryStats, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statsResponse{
			Stats:                queue.Stats(),
			StatusDeliveryGaveUp: delivery.GaveUp(),
		}, logger)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

