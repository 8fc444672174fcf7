// Package gitutil provides a client for fetching Git repositories into build workspaces.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
	// Binary is the git executable, "git" when empty.
	Binary string
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger, Binary: "git"}
}

// Fetch clones a single branch of repoURL into path and checks out sha.
// An empty sha leaves the worktree at the branch head.
func (c *Client) Fetch(ctx context.Context, repoURL, branch, sha, path, token string) error {
	authURL, err := c.getAuthenticatedURL(repoURL, token)
	if err != nil {
		return err
	}

	c.Logger.InfoContext(ctx, "cloning repository", "url", repoURL, "branch", branch, "path", path)
	args := []string{"-c", "core.longpaths=true", "clone", "--branch", branch, "--single-branch", "--", authURL, path}
	cmd := exec.CommandContext(ctx, c.binary(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone failed: %s: %w", redact(strings.TrimSpace(string(out)), token), err)
	}

	if sha == "" {
		return nil
	}
	return c.Checkout(ctx, path, sha)
}

// Checkout switches the worktree at path to the given commit using go-git.
func (c *Client) Checkout(ctx context.Context, path, sha string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("failed to open cloned repo: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return fmt.Errorf("commit %s not found in fetched history: %w", sha, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	c.Logger.DebugContext(ctx, "checking out commit", "sha", hash.String())
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("git checkout %s failed: %w", sha, err)
	}
	return nil
}

// HeadSHA returns the commit the worktree at path is on.
func (c *Client) HeadSHA(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return "git"
	}
	return c.Binary
}

func (c *Client) getAuthenticatedURL(repoURL, token string) (string, error) {
	// Handle local paths directly. file:// is intentionally unsupported for security.
	if !strings.Contains(repoURL, "://") {
		return repoURL, nil
	}

	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		return "", fmt.Errorf("invalid repository URL: %s", repoURL)
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse repository URL '%s': %w", repoURL, err)
	}
	if token != "" {
		parsedURL.User = url.UserPassword("x-access-token", token)
	}
	return parsedURL.String(), nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}
