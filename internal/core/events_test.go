package core

import (
	"errors"
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSHA = "0123456789abcdef0123456789abcdef01234567"

func pushEvent(ref, sha string) *github.PushEvent {
	return &github.PushEvent{
		Ref:        github.Ptr(ref),
		After:      github.Ptr(sha),
		HeadCommit: &github.HeadCommit{ID: github.Ptr(sha)},
		Repo: &github.PushEventRepository{
			Name:  github.Ptr("calculator"),
			Owner: &github.User{Login: github.Ptr("group21")},
		},
	}
}

func TestJobRequestFromPush(t *testing.T) {
	req, err := JobRequestFromPush(pushEvent("refs/heads/feature/login", testSHA))
	require.NoError(t, err)
	assert.Equal(t, &JobRequest{
		RepoOwner:  "group21",
		RepoName:   "calculator",
		CommitSHA:  testSHA,
		BranchName: "feature/login",
	}, req)
	assert.Equal(t, "group21/calculator", req.FullName())
}

func TestJobRequestFromPush_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(e *github.PushEvent)
		wantIgnored bool
	}{
		{
			name:   "missing ref",
			mutate: func(e *github.PushEvent) { e.Ref = nil },
		},
		{
			name:        "tag push",
			mutate:      func(e *github.PushEvent) { e.Ref = github.Ptr("refs/tags/v1.0.0") },
			wantIgnored: true,
		},
		{
			name:        "branch deleted",
			mutate:      func(e *github.PushEvent) { e.Deleted = github.Ptr(true) },
			wantIgnored: true,
		},
		{
			name:   "missing repository",
			mutate: func(e *github.PushEvent) { e.Repo = nil },
		},
		{
			name:   "missing owner",
			mutate: func(e *github.PushEvent) { e.Repo.Owner = nil },
		},
		{
			name:   "empty owner login and name",
			mutate: func(e *github.PushEvent) { e.Repo.Owner = &github.User{} },
		},
		{
			name: "missing head commit and after",
			mutate: func(e *github.PushEvent) {
				e.HeadCommit = nil
				e.After = nil
			},
		},
		{
			name:   "malformed sha",
			mutate: func(e *github.PushEvent) { e.HeadCommit.ID = github.Ptr("not-a-sha") },
		},
		{
			name:   "path traversal in repository name",
			mutate: func(e *github.PushEvent) { e.Repo.Name = github.Ptr("..") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := pushEvent("refs/heads/main", testSHA)
			tt.mutate(e)
			req, err := JobRequestFromPush(e)
			require.Error(t, err)
			assert.Nil(t, req)
			assert.Equal(t, tt.wantIgnored, errors.Is(err, ErrIgnoredEvent))
		})
	}
}

func TestJobRequestFromPush_FallsBackToAfterAndOwnerName(t *testing.T) {
	e := pushEvent("refs/heads/main", testSHA)
	e.HeadCommit = nil
	e.Repo.Owner = &github.User{Name: github.Ptr("group21")}

	req, err := JobRequestFromPush(e)
	require.NoError(t, err)
	assert.Equal(t, testSHA, req.CommitSHA)
	assert.Equal(t, "group21", req.RepoOwner)
}
