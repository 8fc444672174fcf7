package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists all recorded builds, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		outcomes, err := app.Store.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to retrieve build history: %w", err)
		}

		if historyJSON {
			for _, o := range outcomes {
				o.LogText = ""
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(outcomes)
		}

		if len(outcomes) == 0 {
			dimColor.Println("No builds have been recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "COMMIT\tREPOSITORY\tBRANCH\tSTATUS\tCOMPLETED\tDURATION")
		for _, o := range outcomes {
			fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%s\t%s\n",
				shortSHA(o.CommitSHA),
				o.RepoOwner, o.RepoName,
				o.BranchName,
				statusColor(o.Status).Sprint(o.Status),
				o.CompletedAt.Local().Format(time.RFC822),
				o.Duration().Round(time.Second),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output history as JSON")
	rootCmd.AddCommand(historyCmd)
}
