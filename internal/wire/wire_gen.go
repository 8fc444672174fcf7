// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/db"
	"github.com/sevigo/ci-warden/internal/gitutil"
	"github.com/sevigo/ci-warden/internal/server"
	"github.com/sevigo/ci-warden/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	loggerConfig := provideLoggerConfig(cfg)
	writer := provideLogWriter(loggerConfig)
	logger := provideSlogLogger(loggerConfig, writer)

	dbConfig := provideDBConfig(cfg)
	dbConn, cleanupDB, err := db.NewDatabase(dbConfig)
	if err != nil {
		return nil, nil, err
	}
	store := storage.NewStore(provideSQLX(dbConn))

	runLog, cleanupRunLog, err := provideRunLog(cfg, logger)
	if err != nil {
		cleanupDB()
		return nil, nil, err
	}

	gitClient := gitutil.NewClient(logger)
	exec, err := provideExecutor(cfg, gitClient, runLog, logger)
	if err != nil {
		cleanupRunLog()
		cleanupDB()
		return nil, nil, err
	}

	ghClient, err := provideGitHubClient(ctx, cfg, logger)
	if err != nil {
		cleanupRunLog()
		cleanupDB()
		return nil, nil, err
	}
	reporter := provideStatusReporter(ghClient, cfg, logger)

	job := provideBuildJob(cfg, exec, store, reporter, logger)
	dispatcher := provideDispatcher(job, cfg, logger)
	router := server.NewRouter(cfg, dispatcher, store, reporter, logger)
	httpServer := server.NewServer(cfg, router, logger)

	application := app.NewApp(cfg, httpServer, dispatcher, store, exec, reporter, logger)
	return application, func() {
		cleanupRunLog()
		cleanupDB()
	}, nil
}
