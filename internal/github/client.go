// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v73/github"
)

// Client defines the GitHub API operations the build pipeline depends on.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	// CreateStatus sets a commit status. The response is returned even on error
	// so callers can inspect the HTTP status code.
	CreateStatus(ctx context.Context, owner, repo, sha string, status *github.RepoStatus) (*github.Response, error)
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubClient wraps the official go-github client to provide a focused,
// testable interface for application-specific GitHub operations.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// CreateStatus creates a new commit status for sha.
func (g *gitHubClient) CreateStatus(ctx context.Context, owner, repo, sha string, status *github.RepoStatus) (*github.Response, error) {
	_, resp, err := g.client.Repositories.CreateStatus(ctx, owner, repo, sha, status)
	if err != nil {
		g.logger.Debug("create status request failed", "owner", owner, "repo", repo, "commit", sha, "state", status.GetState(), "error", err)
	}
	return resp, err
}
