package ethdb

import (
	"database/sql"
	"testing"

	"github.com/6529-Collections/6529stats/internal/db/testdb"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, cleanup := testdb.SetupTestDB(t)
	t.Cleanup(cleanup)
	return db
}
