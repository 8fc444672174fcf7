// Package storage persists build outcomes keyed by commit SHA.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/ci-warden/internal/core"
)

// ErrNotFound is returned when no outcome exists for a commit.
var ErrNotFound = errors.New("build outcome not found")

// Store defines the interface for all database operations.
//
//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store
type Store interface {
	// Save inserts the outcome or replaces the one stored for the same commit.
	Save(ctx context.Context, outcome *core.BuildOutcome) error
	GetByCommit(ctx context.Context, commitSHA string) (*core.BuildOutcome, error)
	// GetAll returns every outcome, most recently completed first.
	GetAll(ctx context.Context) ([]*core.BuildOutcome, error)
	Delete(ctx context.Context, commitSHA string) error
}

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a Store backed by db. The queries are written once with
// named or '?' parameters and rebound for the connection's driver.
func NewStore(db *sqlx.DB) Store {
	if db == nil {
		panic("database cannot be nil")
	}
	return &sqlStore{db: db}
}

const upsertOutcome = `
	INSERT INTO build_outcomes (commit_sha, repo_owner, repo_name, branch_name, status, log_text, started_at, completed_at)
	VALUES (:commit_sha, :repo_owner, :repo_name, :branch_name, :status, :log_text, :started_at, :completed_at)
	ON CONFLICT (commit_sha) DO UPDATE SET
		repo_owner   = excluded.repo_owner,
		repo_name    = excluded.repo_name,
		branch_name  = excluded.branch_name,
		status       = excluded.status,
		log_text     = excluded.log_text,
		started_at   = excluded.started_at,
		completed_at = excluded.completed_at`

const selectOutcome = `
	SELECT commit_sha, repo_owner, repo_name, branch_name, status, log_text, started_at, completed_at
	FROM build_outcomes`

// Save writes the outcome. Timestamps are stored in UTC.
func (s *sqlStore) Save(ctx context.Context, outcome *core.BuildOutcome) error {
	if outcome == nil || outcome.CommitSHA == "" {
		return fmt.Errorf("outcome must have a commit SHA")
	}
	row := *outcome
	row.StartedAt = row.StartedAt.UTC()
	row.CompletedAt = row.CompletedAt.UTC()

	if _, err := s.db.NamedExecContext(ctx, upsertOutcome, &row); err != nil {
		return fmt.Errorf("failed to save build outcome for %s: %w", outcome.CommitSHA, err)
	}
	return nil
}

// GetByCommit retrieves the outcome stored for a commit.
func (s *sqlStore) GetByCommit(ctx context.Context, commitSHA string) (*core.BuildOutcome, error) {
	query := s.db.Rebind(selectOutcome + ` WHERE commit_sha = ?`)

	var o core.BuildOutcome
	if err := s.db.GetContext(ctx, &o, query, commitSHA); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, commitSHA)
		}
		return nil, fmt.Errorf("failed to get build outcome for %s: %w", commitSHA, err)
	}
	return &o, nil
}

// GetAll retrieves every stored outcome.
func (s *sqlStore) GetAll(ctx context.Context) ([]*core.BuildOutcome, error) {
	var outcomes []*core.BuildOutcome
	if err := s.db.SelectContext(ctx, &outcomes, selectOutcome+` ORDER BY completed_at DESC, commit_sha`); err != nil {
		return nil, fmt.Errorf("failed to list build outcomes: %w", err)
	}
	if outcomes == nil {
		outcomes = []*core.BuildOutcome{}
	}
	return outcomes, nil
}

// Delete removes the outcome stored for a commit.
func (s *sqlStore) Delete(ctx context.Context, commitSHA string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM build_outcomes WHERE commit_sha = ?`), commitSHA)
	if err != nil {
		return fmt.Errorf("failed to delete build outcome for %s: %w", commitSHA, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete build outcome for %s: %w", commitSHA, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, commitSHA)
	}
	return nil
}
