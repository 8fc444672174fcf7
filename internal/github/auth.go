package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/ci-warden/internal/config"
)

// NewClient creates a GitHub client from configuration. A personal access token
// takes precedence over GitHub App installation credentials. Without either the
// client is unauthenticated and status updates will be rejected by GitHub.
func NewClient(ctx context.Context, cfg config.GitHubConfig, logger *slog.Logger) (Client, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}

	var ghClient *github.Client
	switch {
	case cfg.Token != "":
		logger.Info("using personal access token for GitHub API")
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		ghClient = github.NewClient(oauth2.NewClient(ctx, ts))

	case cfg.AppID != 0:
		logger.Info("using GitHub App installation for GitHub API", "app_id", cfg.AppID, "installation_id", cfg.InstallationID)
		itr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub App installation transport: %w", err)
		}
		if cfg.APIURL != "" {
			itr.BaseURL = strings.TrimSuffix(cfg.APIURL, "/")
		}
		ghClient = github.NewClient(&http.Client{Transport: itr})

	default:
		logger.Warn("no GitHub credentials configured; commit status delivery will fail")
		ghClient = github.NewClient(nil)
	}

	if cfg.APIURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_API_URL %q: %w", cfg.APIURL, err)
		}
		ghClient.BaseURL = baseURL
	}

	return NewGitHubClient(ghClient, logger), nil
}
