package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSqlite_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlite", "test.db")

	sqlite, err := OpenSqlite(path)
	require.NoError(t, err)
	defer sqlite.Close()

	for _, table := range []string{"block_hash", "watcher_progress", "actions"} {
		var name string
		err := sqlite.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}

	// Reopening an already migrated database is a no-op.
	require.NoError(t, sqlite.Close())
	again, err := OpenSqlite(path)
	require.NoError(t, err)
	defer again.Close()
}

func TestOpenBadgerInMemory(t *testing.T) {
	kv, err := OpenBadgerInMemory()
	require.NoError(t, err)
	defer kv.Close()
	assert.True(t, kv.Opts().InMemory)
}

func TestOpenSqlite_SchemaVersionAndPragmas(t *testing.T) {
	sqlite, err := OpenSqlite(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	defer sqlite.Close()

	var version int
	var dirty bool
	require.NoError(t, sqlite.QueryRow("SELECT version, dirty FROM schema_migrations").Scan(&version, &dirty))
	assert.Equal(t, 2, version)
	assert.False(t, dirty)

	var mode string
	require.NoError(t, sqlite.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	// actions indexes back the feed filters
	var indexes int
	require.NoError(t, sqlite.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = 'actions'").Scan(&indexes))
	assert.Greater(t, indexes, 0)
}
