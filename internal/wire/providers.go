package wire

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/wire"
	"github.com/jmoiron/sqlx"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/db"
	"github.com/sevigo/ci-warden/internal/executor"
	"github.com/sevigo/ci-warden/internal/github"
	"github.com/sevigo/ci-warden/internal/gitutil"
	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/logger"
	"github.com/sevigo/ci-warden/internal/runlog"
	"github.com/sevigo/ci-warden/internal/server"
	"github.com/sevigo/ci-warden/internal/server/handler"
	"github.com/sevigo/ci-warden/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	server.NewRouter,
	config.LoadConfig,
	db.NewDatabase,
	storage.NewStore,
	gitutil.NewClient,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	provideDBConfig,
	provideSQLX,
	provideRunLog,
	provideExecutor,
	provideGitHubClient,
	provideStatusReporter,
	provideBuildJob,
	provideDispatcher,
	wire.Bind(new(executor.Fetcher), new(*gitutil.Client)),
	wire.Bind(new(executor.RunLog), new(*runlog.Writer)),
	wire.Bind(new(server.Dispatcher), new(*jobs.Dispatcher)),
	wire.Bind(new(handler.DeliveryStats), new(*github.StatusReporter)),
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg logger.Config) io.Writer {
	return logger.Writer(cfg)
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	l := logger.NewLogger(loggerConfig, writer)
	slog.SetDefault(l)
	return l
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return cfg.Database
}

func provideSQLX(conn *db.DB) *sqlx.DB {
	return conn.DB
}

func provideRunLog(cfg *config.Config, logger *slog.Logger) (*runlog.Writer, func(), error) {
	return runlog.Open(cfg.Build.RunLogPath, logger)
}

func provideExecutor(cfg *config.Config, fetcher executor.Fetcher, runLog executor.RunLog, logger *slog.Logger) (*executor.Executor, error) {
	return executor.New(executor.ConfigFrom(cfg), fetcher, runLog, logger)
}

func provideGitHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (github.Client, error) {
	return github.NewClient(ctx, cfg.GitHub, logger)
}

func provideStatusReporter(client github.Client, cfg *config.Config, logger *slog.Logger) *github.StatusReporter {
	return github.NewStatusReporter(client, github.ReporterConfigFrom(cfg), logger)
}

func provideBuildJob(cfg *config.Config, exec *executor.Executor, store storage.Store, reporter *github.StatusReporter, logger *slog.Logger) core.Job {
	return jobs.NewBuildJob(exec, store, reporter, cfg.Reporter.ReportPending, logger)
}

func provideDispatcher(job core.Job, cfg *config.Config, logger *slog.Logger) *jobs.Dispatcher {
	return jobs.NewDispatcher(job, jobs.Config{
		MaxWorkers:     cfg.Queue.MaxWorkers,
		QueueCapacity:  cfg.Queue.Capacity,
		DedupeInFlight: cfg.Queue.DedupeInFlight,
	}, logger)
}
