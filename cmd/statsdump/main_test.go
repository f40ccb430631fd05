package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/6529-Collections/6529stats/internal/db/testdb"
	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Value int `json:"value"`
}

func TestDump(t *testing.T) {
	s := store.NewBadgerStore(testdb.SetupTestBadger(t))
	holders := store.NewTable[entry]("holder")
	pools := store.NewTable[entry]("pool")
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		if err := holders.Set(tx, "nft:1:0xaa", &entry{Value: 1}); err != nil {
			return err
		}
		if err := holders.Set(tx, "nft:1:0xbb", &entry{Value: 2}); err != nil {
			return err
		}
		return pools.Set(tx, "vault:1", &entry{Value: 3})
	}))

	var all bytes.Buffer
	n, err := dump(context.Background(), &all, s, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, all.String(), "stats:pool:vault:1")

	var only bytes.Buffer
	n, err = dump(context.Background(), &only, s, "holder")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, only.String(), "stats:holder:nft:1:0xbb")
	assert.Contains(t, only.String(), `"value": 2`)
	assert.NotContains(t, only.String(), "pool")
}
