package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// badgerLogger routes badger's own logging into zap. Debug output is dropped,
// badger emits it on every compaction.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func newBadgerLogger(logger *zap.Logger) badgerLogger {
	return badgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.sugar.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.sugar.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.sugar.Infof(f, v...) }
func (l badgerLogger) Debugf(string, ...interface{})       {}

// OpenBadger opens the aggregate store at path for writing, creating the
// directory when needed. Only one writer may hold the directory.
func OpenBadger(path string) (*badger.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for BadgerDB: %w", err)
	}
	return openBadger(badger.DefaultOptions(path).WithSyncWrites(true), "BadgerDB")
}

// OpenBadgerReadOnly opens an existing store for inspection. It fails when
// the directory does not exist instead of creating an empty store.
func OpenBadgerReadOnly(path string) (*badger.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return openBadger(badger.DefaultOptions(path).WithReadOnly(true), "BadgerDB read-only")
}

// OpenBadgerInMemory opens a non-persistent instance, used by tests and dry runs.
func OpenBadgerInMemory() (*badger.DB, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true), "in-memory BadgerDB")
}

func openBadger(opts badger.Options, what string) (*badger.DB, error) {
	opts.Logger = newBadgerLogger(zap.L())
	kv, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", what, err)
	}
	return kv, nil
}
