package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// The feed and watcher tables are written by one process; WAL lets the RPC
// server read while the indexer writes.
var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// OpenSqlite opens the feed and watcher database at path and brings its
// schema up to the latest embedded migration.
func OpenSqlite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	sqlite, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	fail := func(err error) (*sql.DB, error) {
		if closeErr := sqlite.Close(); closeErr != nil {
			zap.L().Error("Failed to close SQLite", zap.Error(closeErr))
		}
		return nil, err
	}

	for _, pragma := range sqlitePragmas {
		if _, err := sqlite.Exec(pragma); err != nil {
			return fail(fmt.Errorf("failed to set %q: %w", pragma, err))
		}
	}

	version, err := migrateDatabase(sqlite)
	if err != nil {
		return fail(fmt.Errorf("failed to run migrations: %w", err))
	}

	zap.L().Info("Opened SQLite database", zap.String("path", path), zap.Uint("schemaVersion", version))
	return sqlite, nil
}

// migrateDatabase applies pending migrations and returns the resulting
// schema version.
func migrateDatabase(sqlite *sql.DB) (uint, error) {
	driver, err := sqlite3.WithInstance(sqlite, &sqlite3.Config{NoTxWrap: true})
	if err != nil {
		return 0, fmt.Errorf("failed to create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrator: %w", err)
	}

	// m.Close would close sqlite as well
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
