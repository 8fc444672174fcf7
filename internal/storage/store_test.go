package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/config"
	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/db"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	conn, cleanup, err := db.NewDatabase(&config.DBConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "builds.db"),
	})
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return NewStore(conn.DB)
}

func newOutcome(sha string, status core.BuildStatus, completed time.Time) *core.BuildOutcome {
	return &core.BuildOutcome{
		CommitSHA:   sha,
		RepoOwner:   "octo",
		RepoName:    "demo",
		BranchName:  "main",
		Status:      status,
		LogText:     "BUILD SUCCESS\n",
		StartedAt:   completed.Add(-time.Minute),
		CompletedAt: completed,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	completed := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, newOutcome("abc123", core.StatusSuccess, completed)))

	got, err := store.GetByCommit(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.CommitSHA)
	assert.Equal(t, "octo", got.RepoOwner)
	assert.Equal(t, "demo", got.RepoName)
	assert.Equal(t, "main", got.BranchName)
	assert.Equal(t, core.StatusSuccess, got.Status)
	assert.Equal(t, "BUILD SUCCESS\n", got.LogText)
	assert.True(t, completed.Equal(got.CompletedAt), "completed_at = %s", got.CompletedAt)
	assert.True(t, completed.Add(-time.Minute).Equal(got.StartedAt))
}

func TestStore_SaveIsIdempotentPerCommit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.Save(ctx, newOutcome("abc123", core.StatusFailed, now)))
	require.NoError(t, store.Save(ctx, newOutcome("abc123", core.StatusFailed, now)))

	rerun := newOutcome("abc123", core.StatusSuccess, now.Add(time.Hour))
	rerun.LogText = "second run\n"
	require.NoError(t, store.Save(ctx, rerun))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, core.StatusSuccess, all[0].Status)
	assert.Equal(t, "second run\n", all[0].LogText)
}

func TestStore_GetAllOrdersByCompletion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)

	require.NoError(t, store.Save(ctx, newOutcome("old", core.StatusSuccess, base)))
	require.NoError(t, store.Save(ctx, newOutcome("new", core.StatusFailed, base.Add(2*time.Hour))))
	require.NoError(t, store.Save(ctx, newOutcome("mid", core.StatusSuccess, base.Add(time.Hour))))

	all, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].CommitSHA)
	assert.Equal(t, "mid", all[1].CommitSHA)
	assert.Equal(t, "old", all[2].CommitSHA)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetByCommit(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, newOutcome("abc123", core.StatusSuccess, time.Now())))
	require.NoError(t, store.Delete(ctx, "abc123"))

	_, err := store.GetByCommit(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveRejectsMissingCommit(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), &core.BuildOutcome{}))
	assert.Error(t, store.Save(context.Background(), nil))
}
