package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v73/github"
)

const branchRefPrefix = "refs/heads/"

var (
	namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	shaPattern  = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// JobRequest is the normalized request to build and test one commit on one branch.
// It is immutable once created.
type JobRequest struct {
	RepoOwner  string `json:"repo_owner"`
	RepoName   string `json:"repo_name"`
	CommitSHA  string `json:"commit_sha"`
	BranchName string `json:"branch_name"`
}

// FullName returns "owner/name".
func (r *JobRequest) FullName() string {
	return r.RepoOwner + "/" + r.RepoName
}

// Validate checks that every required field is present and safe to use in
// URLs and filesystem paths.
func (r *JobRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("job request cannot be nil")
	}
	if !namePattern.MatchString(r.RepoOwner) || r.RepoOwner == "." || r.RepoOwner == ".." {
		return fmt.Errorf("invalid repository owner %q", r.RepoOwner)
	}
	if !namePattern.MatchString(r.RepoName) || r.RepoName == "." || r.RepoName == ".." {
		return fmt.Errorf("invalid repository name %q", r.RepoName)
	}
	if r.CommitSHA == "" {
		return fmt.Errorf("commit SHA cannot be empty")
	}
	if r.BranchName == "" || strings.HasPrefix(r.BranchName, "-") {
		return fmt.Errorf("invalid branch name %q", r.BranchName)
	}
	return nil
}

// ErrIgnoredEvent marks push events that are well-formed but should not start a build,
// such as tag pushes and branch deletions.
var ErrIgnoredEvent = fmt.Errorf("push event does not require a build")

// JobRequestFromPush transforms a raw GitHub PushEvent into a JobRequest. It acts as an
// anti-corruption layer: every required field is checked explicitly and malformed
// payloads are rejected before a request exists. Pushes that are valid but carry
// nothing to build return an error wrapping ErrIgnoredEvent.
func JobRequestFromPush(event *github.PushEvent) (*JobRequest, error) {
	if event == nil {
		return nil, fmt.Errorf("push event cannot be nil")
	}

	ref := event.GetRef()
	if ref == "" {
		return nil, fmt.Errorf("push event is missing ref")
	}
	if !strings.HasPrefix(ref, branchRefPrefix) {
		return nil, fmt.Errorf("%w: ref %q is not a branch", ErrIgnoredEvent, ref)
	}
	if event.GetDeleted() {
		return nil, fmt.Errorf("%w: branch %q was deleted", ErrIgnoredEvent, ref)
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner() == nil || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		owner = repo.GetOwner().GetName()
	}
	if owner == "" {
		return nil, fmt.Errorf("repository owner login is missing from the event")
	}

	sha := event.GetHeadCommit().GetID()
	if sha == "" {
		sha = event.GetAfter()
	}
	if !shaPattern.MatchString(sha) {
		return nil, fmt.Errorf("invalid head commit id %q", sha)
	}

	req := &JobRequest{
		RepoOwner:  owner,
		RepoName:   repo.GetName(),
		CommitSHA:  sha,
		BranchName: strings.TrimPrefix(ref, branchRefPrefix),
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
