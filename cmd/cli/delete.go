package main

import (
	"context"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <commit-sha>",
	Short: "Deletes the recorded outcome of one build",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		app, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := app.Store.Delete(ctx, args[0]); err != nil {
			return err
		}
		successColor.Printf("Deleted build %s\n", args[0])
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(deleteCmd)
}
