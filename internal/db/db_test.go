package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/config"
)

func TestNewDatabase_SQLite(t *testing.T) {
	cfg := &config.DBConfig{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "data", "ci.db")}

	db, cleanup, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer cleanup()

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM build_outcomes`))
	assert.Equal(t, 0, count)

	// Applying the migrations again is a no-op.
	assert.NoError(t, db.RunMigrations())
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, cleanup, err := NewDatabase(&config.DBConfig{Driver: "mysql"})
	require.Error(t, err)
	cleanup()

	_, _, err = NewDatabase(nil)
	assert.Error(t, err)
}

func TestDataSourceName_Postgres(t *testing.T) {
	dsn, err := dataSourceName(&config.DBConfig{
		Driver:   DriverPostgres,
		Host:     "db",
		Port:     5432,
		Username: "ci",
		Password: "pw",
		Database: "builds",
	})
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=ci password=pw dbname=builds sslmode=disable", dsn)
}
