package gitutil

import (
	"fmt"
	"regexp"
	"strings"
)

var fullNameRegex = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)

// RepoURL constructs the clone URL of a repository hosted under baseURL,
// e.g. https://github.com/{owner}/{repo}.git.
func RepoURL(baseURL, owner, repo string) string {
	return fmt.Sprintf("%s/%s/%s.git", strings.TrimSuffix(baseURL, "/"), owner, repo)
}

// ParseRepoFullName splits "owner/repo" (optionally a full GitHub URL) into its parts.
func ParseRepoFullName(s string) (owner, repo string, err error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "/")
	s = strings.TrimSuffix(s, ".git")
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "github.com/")

	matches := fullNameRegex.FindStringSubmatch(s)
	if len(matches) != 3 {
		return "", "", fmt.Errorf("invalid repository name format: %s", s)
	}
	return matches[1], matches[2], nil
}
