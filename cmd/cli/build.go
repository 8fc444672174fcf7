package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/gitutil"
)

var (
	buildOwner  string
	buildRepo   string
	buildBranch string
	buildCommit string
	buildReport bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Runs one build synchronously and records its outcome",
	Long: `Runs one build synchronously through the same executor and result store the
server uses. With --report the outcome is also published as a commit status.

Examples:
  warden-ci build --repo octo/demo --branch main --commit 0123abc...
  warden-ci build --owner octo --repo demo --branch main --commit 0123abc... --report`,
	RunE: runBuild,
}

func runBuild(_ *cobra.Command, _ []string) error {
	owner, repo := buildOwner, buildRepo
	if owner == "" {
		var err error
		if owner, repo, err = gitutil.ParseRepoFullName(buildRepo); err != nil {
			return fmt.Errorf("--owner is required unless --repo is owner/name: %w", err)
		}
	}
	req := &core.JobRequest{RepoOwner: owner, RepoName: repo, CommitSHA: buildCommit, BranchName: buildBranch}
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	boldColor.Printf("Building %s@%s (%s)...\n", req.FullName(), shortSHA(req.CommitSHA), req.BranchName)
	outcome := app.Executor.Execute(ctx, req)

	if err := app.Store.Save(context.WithoutCancel(ctx), outcome); err != nil {
		errorColor.Printf("Failed to save outcome: %v\n", err)
	}
	if buildReport {
		if err := app.Reporter.Report(context.WithoutCancel(ctx), outcome); err != nil {
			errorColor.Printf("Failed to report status: %v\n", err)
		}
	}

	printOutcome(outcome, true)
	if !outcome.Succeeded() {
		return fmt.Errorf("build %s failed", shortSHA(req.CommitSHA))
	}
	return nil
}

func init() { //nolint:gochecknoinits // Cobra command registration
	buildCmd.Flags().StringVar(&buildOwner, "owner", "", "Repository owner")
	buildCmd.Flags().StringVar(&buildRepo, "repo", "", "Repository name, or owner/name")
	buildCmd.Flags().StringVar(&buildBranch, "branch", "main", "Branch to clone")
	buildCmd.Flags().StringVar(&buildCommit, "commit", "", "Commit SHA to build")
	buildCmd.Flags().BoolVar(&buildReport, "report", false, "Publish the outcome as a GitHub commit status")
	_ = buildCmd.MarkFlagRequired("repo")
	_ = buildCmd.MarkFlagRequired("commit")
	rootCmd.AddCommand(buildCmd)
}
