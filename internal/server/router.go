package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/server/handler"
	"github.com/sevigo/ci-warden/internal/storage"
)

// Dispatcher is the job intake and its counters.
type Dispatcher interface {
	core.JobDispatcher
	handler.QueueStats
}

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, dispatcher Dispatcher, store storage.Store, delivery handler.DeliveryStats, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg.GitHub.WebhookSecret, dispatcher, logger)
		r.Post("/webhook/github", webhookHandler.Handle)

		builds := handler.NewBuildsHandler(store, logger)
		r.Get("/builds", builds.List)
		r.Get("/builds/{commitSHA}", builds.Get)
		r.Delete("/builds/{commitSHA}", builds.Delete)

		r.Get("/stats", handler.NewStatsHandler(dispatcher, delivery, logger))
	})

	return r
}
