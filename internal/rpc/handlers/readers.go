package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/6529-Collections/6529stats/internal/feed"
	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
)

// StatsReader is the read side of the engine.
type StatsReader interface {
	CollectionStat(ctx context.Context, collection string, chainID uint64) (*models.CollectionStat, error)
	CollectionChains(ctx context.Context, collection string) ([]*models.CollectionStat, error)
	HolderBalance(ctx context.Context, scope string, chainID uint64, address string) (*models.HolderBalance, error)
	BurnStats(ctx context.Context, collection string, chainID uint64, source string) (*models.BurnStat, error)
	BurnSources(ctx context.Context, collection string, chainID uint64) ([]*models.BurnStat, error)
	BurnRecord(ctx context.Context, id string) (*models.BurnRecord, error)
	Position(ctx context.Context, pool string, chainID uint64, user string) (*models.Position, error)
	PoolStat(ctx context.Context, pool string, chainID uint64) (*models.PoolStat, error)
	Action(ctx context.Context, id string) (*models.Action, error)
}

type ActionQuerier interface {
	Query(ctx context.Context, filter feed.Filter, page, pageSize int) (int, []*models.Action, error)
}

// parseChain accepts a decimal chain id or "global".
func parseChain(raw string) (uint64, error) {
	if raw == "global" {
		return constants.GLOBAL_CHAIN_ID, nil
	}
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid chain id %q", raw)
	}
	return chainID, nil
}

func parseChainStrict(raw string) (uint64, error) {
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || chainID == constants.GLOBAL_CHAIN_ID {
		return 0, badRequest("invalid chain id %q", raw)
	}
	return chainID, nil
}

func readError(err error) error {
	if errors.Is(err, engine.ErrMalformedEvent) {
		return badRequest("%s", err.Error())
	}
	return err
}
