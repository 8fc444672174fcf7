package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoURL(t *testing.T) {
	assert.Equal(t, "https://github.com/group21/ci.git", RepoURL("https://github.com", "group21", "ci"))
	assert.Equal(t, "https://ghe.local/a/b.git", RepoURL("https://ghe.local/", "a", "b"))
}

func TestParseRepoFullName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "Plain full name", input: "sevigo/ci-warden", wantOwner: "sevigo", wantRepo: "ci-warden"},
		{name: "HTTPS URL", input: "https://github.com/sevigo/ci-warden", wantOwner: "sevigo", wantRepo: "ci-warden"},
		{name: "Clone URL", input: "https://github.com/sevigo/ci-warden.git", wantOwner: "sevigo", wantRepo: "ci-warden"},
		{name: "URL without scheme", input: "github.com/sevigo/ci-warden/", wantOwner: "sevigo", wantRepo: "ci-warden"},
		{name: "Missing repo", input: "sevigo", wantErr: true},
		{name: "Too many segments", input: "https://github.com/sevigo/ci-warden/pull/1", wantErr: true},
		{name: "Invalid characters", input: "sevigo/ci warden", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoFullName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantOwner, owner)
				assert.Equal(t, tt.wantRepo, repo)
			}
		})
	}
}
