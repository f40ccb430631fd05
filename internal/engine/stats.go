package engine

import (
	"math/big"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/metrics"
	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
	"go.uber.org/zap"
)

var collectionStats = store.NewTable[models.CollectionStat]("collection")

func collectionStatID(collection string, chainID uint64) string {
	return store.Key(collection, strconv.FormatUint(chainID, 10))
}

// StatsDelta is what one transfer contributes to a collection rollup.
type StatsDelta struct {
	IsMint      bool
	IsBurn      bool
	Quantity    *big.Int
	Transitions []Transition
}

func loadCollectionStat(tx store.Tx, collection string, chainID uint64) (*models.CollectionStat, error) {
	stat, err := collectionStats.Get(tx, collectionStatID(collection, chainID))
	if err != nil {
		return nil, err
	}
	if stat == nil {
		stat = &models.CollectionStat{
			Collection:  collection,
			ChainID:     chainID,
			TotalSupply: new(big.Int),
			TotalMinted: new(big.Int),
			TotalBurned: new(big.Int),
		}
	}
	return stat, nil
}

// ApplyMintBurnOrTransfer folds one delta into the (collection, chainID) row.
// Supply is kept as minted - burned; a burn that would take it negative is
// reported but applied so the identity keeps holding.
func ApplyMintBurnOrTransfer(tx store.Tx, collection string, chainID uint64, delta StatsDelta, timestamp uint64) (*models.CollectionStat, error) {
	stat, err := loadCollectionStat(tx, collection, chainID)
	if err != nil {
		return nil, err
	}

	q := models.OrZero(delta.Quantity)
	if delta.IsMint {
		stat.TotalMinted = models.Add(stat.TotalMinted, q)
		stat.TotalSupply = models.Add(stat.TotalSupply, q)
		stat.LastMintTime = timestamp
	}
	if delta.IsBurn {
		stat.TotalBurned = models.Add(stat.TotalBurned, q)
		stat.TotalSupply = models.Sub(stat.TotalSupply, q)
		if stat.TotalSupply.Sign() < 0 {
			zap.L().Warn("Collection supply below zero, burns observed before mints",
				zap.String("collection", collection),
				zap.Uint64("chainId", chainID),
				zap.String("totalMinted", stat.TotalMinted.String()),
				zap.String("totalBurned", stat.TotalBurned.String()),
			)
			metrics.Engine().ObserveFloorClamp("collection_supply")
		}
	}

	for _, t := range delta.Transitions {
		stat.UniqueHolders += t.HolderDelta()
	}
	if stat.UniqueHolders < 0 {
		zap.L().Warn("Unique holders floored at zero",
			zap.String("collection", collection),
			zap.Uint64("chainId", chainID),
			zap.Int64("uniqueHolders", stat.UniqueHolders),
		)
		metrics.Engine().ObserveFloorClamp("unique_holders")
		stat.UniqueHolders = 0
	}
	if timestamp > stat.LastActivityTime {
		stat.LastActivityTime = timestamp
	}

	return stat, collectionStats.Set(tx, collectionStatID(collection, chainID), stat)
}

// GlobalStats sums every per-chain row of collection. The result carries
// GLOBAL_CHAIN_ID and is never persisted. Nil when no chain has a row.
func GlobalStats(tx store.Tx, collection string) (*models.CollectionStat, error) {
	var global *models.CollectionStat
	err := collectionStats.Scan(tx, collection+":", func(_ string, stat *models.CollectionStat) error {
		if global == nil {
			global = &models.CollectionStat{
				Collection:  collection,
				ChainID:     constants.GLOBAL_CHAIN_ID,
				TotalSupply: new(big.Int),
				TotalMinted: new(big.Int),
				TotalBurned: new(big.Int),
			}
		}
		global.TotalSupply = models.Add(global.TotalSupply, stat.TotalSupply)
		global.TotalMinted = models.Add(global.TotalMinted, stat.TotalMinted)
		global.TotalBurned = models.Add(global.TotalBurned, stat.TotalBurned)
		global.UniqueHolders += stat.UniqueHolders
		global.LastMintTime = max(global.LastMintTime, stat.LastMintTime)
		global.LastActivityTime = max(global.LastActivityTime, stat.LastActivityTime)
		return nil
	})
	return global, err
}
