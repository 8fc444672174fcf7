package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWorkspace(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")

	ws, err := AcquireWorkspace(root, "octo-demo-0123456-abcd1234")
	require.NoError(t, err)
	assert.DirExists(t, ws.Dir)
	assert.Equal(t, filepath.Join(ws.Dir, "src"), ws.Path("src"))

	_, err = AcquireWorkspace(root, "octo-demo-0123456-abcd1234")
	assert.ErrorIs(t, err, ErrWorkspaceCollision)

	require.NoError(t, os.WriteFile(ws.Path("file"), []byte("x"), 0o600))
	require.NoError(t, ws.Release())
	assert.NoDirExists(t, ws.Dir)
}

func TestAcquireWorkspace_SanitizesName(t *testing.T) {
	root := t.TempDir()

	ws, err := AcquireWorkspace(root, "../../etc/passwd")
	require.NoError(t, err)
	defer ws.Release()
	assert.Equal(t, root, filepath.Dir(ws.Dir))

	_, err = AcquireWorkspace(root, "..")
	assert.Error(t, err)
}
