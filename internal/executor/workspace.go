package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// ErrWorkspaceCollision is returned when the directory for a new workspace already exists.
var ErrWorkspaceCollision = errors.New("workspace path already exists")

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Workspace is the per-job directory a build runs in. It is never shared.
type Workspace struct {
	Dir string
}

// AcquireWorkspace creates a fresh directory named name under root. The final path
// component is created with os.Mkdir so an existing directory is reported as
// ErrWorkspaceCollision instead of being reused.
func AcquireWorkspace(root, name string) (*Workspace, error) {
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if safe == "" || safe == "." || safe == ".." {
		return nil, fmt.Errorf("invalid workspace name %q", name)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
	}

	dir := filepath.Join(root, safe)
	if err := os.Mkdir(dir, 0o750); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrWorkspaceCollision, dir)
		}
		return nil, fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}
	return &Workspace{Dir: dir}, nil
}

// Path joins elem onto the workspace directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Dir}, elem...)...)
}

// Release removes the workspace and everything in it.
func (w *Workspace) Release() error {
	return os.RemoveAll(w.Dir)
}
