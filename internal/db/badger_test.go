package db

import (
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenBadger_ReadOnlySeesCommittedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badger", "stats")

	kv, err := OpenBadger(path)
	require.NoError(t, err)
	require.NoError(t, kv.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("stats:collection:memes:1"), []byte(`{"total_supply":"3"}`))
	}))

	// the writer holds the directory lock
	_, err = OpenBadger(path)
	assert.ErrorContains(t, err, "failed to open BadgerDB")
	require.NoError(t, kv.Close())

	ro, err := OpenBadgerReadOnly(path)
	require.NoError(t, err)
	defer ro.Close()
	require.NoError(t, ro.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("stats:collection:memes:1"))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			assert.JSONEq(t, `{"total_supply":"3"}`, string(v))
			return nil
		})
	}))
}

func TestOpenBadgerReadOnly_MissingStore(t *testing.T) {
	_, err := OpenBadgerReadOnly(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to open BadgerDB")
}

func TestOpenBadger_InvalidPath(t *testing.T) {
	_, err := OpenBadger(filepath.Join("/dev/null", "stats"))
	assert.ErrorContains(t, err, "failed to create directory")
}

func TestBadgerLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newBadgerLogger(zap.New(core))

	l.Errorf("value log %d corrupt", 3)
	l.Warningf("slow compaction")
	l.Infof("replaying %s", "wal")
	l.Debugf("ignored")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "value log 3 corrupt", entries[0].Message)
	assert.Equal(t, "badger", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
}
