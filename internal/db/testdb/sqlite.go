package testdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/6529-Collections/6529stats/internal/db"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	sqlite, err := db.OpenSqlite(filepath.Join(t.TempDir(), "sqlite", "sqlite"))
	require.NoError(t, err)

	cleanup := func() {
		sqlite.Close()
	}
	return sqlite, cleanup
}

func SetupTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	kv, err := db.OpenBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}
