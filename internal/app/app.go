// Package app holds the main components of the CI-Warden application and
// orchestrates their startup and shutdown.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/executor"
	"github.com/sevigo/ci-warden/internal/github"
	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/server"
	"github.com/sevigo/ci-warden/internal/storage"
)

// App holds the main application components. The exported fields are used by
// the CLI to run individual operations without the HTTP server.
type App struct {
	Cfg        *config.Config
	Store      storage.Store
	Executor   *executor.Executor
	Reporter   *github.StatusReporter
	Dispatcher *jobs.Dispatcher

	server *server.Server
	logger *slog.Logger
}

// NewApp assembles the application from its components.
func NewApp(
	cfg *config.Config,
	srv *server.Server,
	dispatcher *jobs.Dispatcher,
	store storage.Store,
	exec *executor.Executor,
	reporter *github.StatusReporter,
	logger *slog.Logger,
) *App {
	return &App{
		Cfg:        cfg,
		Store:      store,
		Executor:   exec,
		Reporter:   reporter,
		Dispatcher: dispatcher,
		server:     srv,
		logger:     logger,
	}
}

// Start runs the HTTP server and blocks until it is shut down.
func (a *App) Start() error {
	a.logger.Info("starting CI-Warden",
		"server_port", a.Cfg.Server.Port,
		"max_workers", a.Cfg.Queue.MaxWorkers,
		"queue_capacity", a.Cfg.Queue.Capacity,
		"db_driver", a.Cfg.Database.Driver,
	)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application. The HTTP server stops first so no new jobs
// arrive, then the dispatcher drains its queue. When ctx expires, running builds
// are cancelled and jobs still queued are dropped.
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("shutting down CI-Warden services")

	serverErr := a.server.Stop(ctx)
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	dispatcherErr := a.Dispatcher.Stop(ctx)
	if dispatcherErr != nil {
		a.logger.Error("dispatcher did not drain before shutdown deadline", "error", dispatcherErr)
	}

	if err := errors.Join(serverErr, dispatcherErr); err != nil {
		return err
	}
	a.logger.Info("CI-Warden stopped successfully")
	return nil
}
