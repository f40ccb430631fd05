package engine

import (
	"context"

	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
)

// Read helpers for the API. Each runs in its own read-only transaction and
// returns nil without error when nothing is stored.

func (e *Engine) HolderBalance(ctx context.Context, scope string, chainID uint64, address string) (*models.HolderBalance, error) {
	address, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	var out *models.HolderBalance
	err = e.store.View(ctx, func(tx store.Tx) error {
		out, err = e.ledger.Get(tx, scope, chainID, address)
		return err
	})
	return out, err
}

// CollectionStat returns the per-chain row, or the derived cross-chain view
// for GLOBAL_CHAIN_ID.
func (e *Engine) CollectionStat(ctx context.Context, collection string, chainID uint64) (*models.CollectionStat, error) {
	var out *models.CollectionStat
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		if chainID == constants.GLOBAL_CHAIN_ID {
			out, err = GlobalStats(tx, collection)
			return err
		}
		out, err = collectionStats.Get(tx, collectionStatID(collection, chainID))
		return err
	})
	return out, err
}

// CollectionChains lists every per-chain row of collection.
func (e *Engine) CollectionChains(ctx context.Context, collection string) ([]*models.CollectionStat, error) {
	var out []*models.CollectionStat
	err := e.store.View(ctx, func(tx store.Tx) error {
		return collectionStats.Scan(tx, collection+":", func(_ string, stat *models.CollectionStat) error {
			out = append(out, stat)
			return nil
		})
	})
	return out, err
}

func (e *Engine) BurnStats(ctx context.Context, collection string, chainID uint64, source string) (*models.BurnStat, error) {
	var out *models.BurnStat
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		out, err = GetBurnStat(tx, collection, chainID, source)
		return err
	})
	return out, err
}

func (e *Engine) BurnSources(ctx context.Context, collection string, chainID uint64) ([]*models.BurnStat, error) {
	var out []*models.BurnStat
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		out, err = BurnSourceStats(tx, collection, chainID)
		return err
	})
	return out, err
}

func (e *Engine) BurnRecord(ctx context.Context, id string) (*models.BurnRecord, error) {
	var out *models.BurnRecord
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		out, err = GetBurnRecord(tx, id)
		return err
	})
	return out, err
}

func (e *Engine) Position(ctx context.Context, pool string, chainID uint64, user string) (*models.Position, error) {
	user, err := NormalizeAddress(user)
	if err != nil {
		return nil, err
	}
	var out *models.Position
	err = e.store.View(ctx, func(tx store.Tx) error {
		out, err = GetPosition(tx, pool, chainID, user)
		return err
	})
	return out, err
}

func (e *Engine) PoolStat(ctx context.Context, pool string, chainID uint64) (*models.PoolStat, error) {
	var out *models.PoolStat
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		out, err = GetPoolStat(tx, pool, chainID)
		return err
	})
	return out, err
}

func (e *Engine) Action(ctx context.Context, id string) (*models.Action, error) {
	var out *models.Action
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		out, err = GetAction(tx, id)
		return err
	})
	return out, err
}

// Processed reports whether the event with the given id has been applied.
func (e *Engine) Processed(ctx context.Context, id string) (bool, error) {
	var out bool
	err := e.store.View(ctx, func(tx store.Tx) (err error) {
		out, err = processedEvents.Exists(tx, id)
		return err
	})
	return out, err
}
