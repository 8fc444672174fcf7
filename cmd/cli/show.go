package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/core"
)

var showNoLog bool

var showCmd = &cobra.Command{
	Use:   "show <commit-sha>",
	Short: "Shows the recorded outcome and log of one build",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		outcome, err := app.Store.GetByCommit(ctx, args[0])
		if err != nil {
			return err
		}
		printOutcome(outcome, !showNoLog)
		return nil
	},
}

func printOutcome(o *core.BuildOutcome, withLog bool) {
	boldColor.Printf("Build %s\n", o.CommitSHA)
	fmt.Printf("  Repository: %s/%s\n", o.RepoOwner, o.RepoName)
	fmt.Printf("  Branch:     %s\n", o.BranchName)
	fmt.Printf("  Status:     %s\n", statusColor(o.Status).Sprint(o.Status))
	fmt.Printf("  Started:    %s\n", o.StartedAt.Local().Format(time.RFC1123))
	fmt.Printf("  Duration:   %s\n", o.Duration().Round(time.Millisecond))
	if o.Err != nil {
		fmt.Printf("  Cause:      %s\n", errorColor.Sprint(o.Err))
	}
	if withLog && o.LogText != "" {
		dimColor.Println("\n--- log ---")
		fmt.Print(o.LogText)
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	showCmd.Flags().BoolVar(&showNoLog, "no-log", false, "Omit the build log")
	rootCmd.AddCommand(showCmd)
}
