package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/ci-warden/internal/app"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/wire"
)

var (
	githubToken string
	dbPath      string
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var rootCmd = &cobra.Command{
	Use:          "warden-ci",
	Short:        "warden-ci is the command-line interface for CI-Warden.",
	Long:         `A CLI for inspecting and managing CI-Warden build history and for running single builds locally.`,
	SilenceUsage: true,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&githubToken, "github-token", "t", "", "GitHub token used for cloning and status updates")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "SQLite database path (overrides DB_PATH)")

	for key, flag := range map[string]string{"GITHUB_TOKEN": "github-token", "DB_PATH": "db-path"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
}

// dispatcherStopTimeout bounds how long closing the CLI waits for idle workers.
const dispatcherStopTimeout = 5 * time.Second

// initApp wires the application the same way the server does. The CLI never
// queues jobs, so the returned cleanup also stops the dispatcher's workers.
func initApp(ctx context.Context) (*app.App, func(), error) {
	application, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize app services: %w", err)
	}
	return application, closeApp(application, cleanup), nil
}

func closeApp(application *app.App, cleanup func()) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatcherStopTimeout)
		defer cancel()
		if err := application.Dispatcher.Stop(ctx); err != nil {
			slog.Warn("failed to stop job dispatcher", "error", err)
		}
		cleanup()
	}
}

func statusColor(status core.BuildStatus) *color.Color {
	if status == core.StatusSuccess {
		return successColor
	}
	return errorColor
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
