package ethdb

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressDb_SetGetRewind(t *testing.T) {
	ctx := context.Background()
	progress := NewProgressDb(setupTestDB(t), 1)

	_, found, err := progress.GetProgress()
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, progress.SetProgress(ctx, 100))
	require.NoError(t, progress.SetProgress(ctx, 150))
	block, found, err := progress.GetProgress()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(150), block)

	require.NoError(t, progress.RewindTo(ctx, 120))
	block, _, _ = progress.GetProgress()
	assert.Equal(t, uint64(120), block)

	// rewinding forward is a no-op
	require.NoError(t, progress.RewindTo(ctx, 500))
	block, _, _ = progress.GetProgress()
	assert.Equal(t, uint64(120), block)
}

func TestProgressDb_PerChain(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	require.NoError(t, NewProgressDb(db, 1).SetProgress(ctx, 10))
	require.NoError(t, NewProgressDb(db, 2).SetProgress(ctx, 20))

	block, _, err := NewProgressDb(db, 1).GetProgress()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), block)
}

func TestProgressDb_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select block_number from watcher_progress").
		WithArgs(uint64(1)).
		WillReturnError(errors.New("boom"))

	_, found, err := NewProgressDb(db, 1).GetProgress()
	assert.Error(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}
