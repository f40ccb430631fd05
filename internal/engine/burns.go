package engine

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/metrics"
	"github.com/6529-Collections/6529stats/internal/registry"
	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/6529-Collections/6529stats/pkg/models"
)

var (
	burnRecords      = store.NewTable[models.BurnRecord]("burn")
	burnStats        = store.NewTable[models.BurnStat]("burnstat")
	burnerIdentities = store.NewTable[models.BurnerIdentity]("burner")
)

type burnScope string

const (
	burnScopeGlobal burnScope = "global"
	burnScopeChain  burnScope = "chain"
	burnScopeSource burnScope = "source"
)

// BurnStatID keys a burn counter row. chainID GLOBAL_CHAIN_ID with an empty
// source is the all-chains row.
func BurnStatID(collection string, chainID uint64, source string) string {
	id := store.Key(collection, strconv.FormatUint(chainID, 10))
	if source != "" {
		id = store.Key(id, source)
	}
	return id
}

func BurnRecordID(txHash string, logIndex uint64, sub int) string {
	if sub < 0 {
		return fmt.Sprintf("%s_%d", txHash, logIndex)
	}
	return fmt.Sprintf("%s_%d_%d", txHash, logIndex, sub)
}

// ClassifyBurn names the mechanism behind a burn. The token holder is checked
// against known burn contracts first, then the contract the transaction
// called, falling back to a direct user burn.
func ClassifyBurn(reg *registry.Registry, chainID uint64, from, txTo string) string {
	if source, ok := reg.BurnSource(chainID, from); ok {
		return source
	}
	if source, ok := reg.BurnSource(chainID, txTo); ok {
		return source
	}
	return constants.USER_BURN_SOURCE
}

// AttributedBurner is the address credited with a burn: the account that sent
// the transaction when a burn contract was involved, otherwise the holder.
func AttributedBurner(source, from, txFrom string) string {
	if source != constants.USER_BURN_SOURCE && txFrom != "" {
		return txFrom
	}
	return from
}

type BurnInput struct {
	Collection  string
	ChainID     uint64
	From        string
	Amount      *big.Int
	Tx          TxMeta
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
	// Sub is the position inside a batch event, -1 for single transfers.
	Sub       int
	Timestamp uint64
}

type BurnAttributor struct {
	registry *registry.Registry
}

func NewBurnAttributor(reg *registry.Registry) *BurnAttributor {
	return &BurnAttributor{registry: reg}
}

// Record writes the BurnRecord and updates every burn counter scope. It is
// the only writer of burn counters. A record that already exists is left
// untouched and nil is returned.
func (b *BurnAttributor) Record(tx store.Tx, in BurnInput) (*models.BurnRecord, error) {
	id := BurnRecordID(in.TxHash, in.LogIndex, in.Sub)
	exists, err := burnRecords.Exists(tx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	source := ClassifyBurn(b.registry, in.ChainID, in.From, in.Tx.To)
	record := &models.BurnRecord{
		ID:          id,
		Collection:  in.Collection,
		ChainID:     in.ChainID,
		Amount:      new(big.Int).Set(models.OrZero(in.Amount)),
		Source:      source,
		Burner:      AttributedBurner(source, in.From, in.Tx.From),
		From:        in.From,
		TxFrom:      in.Tx.From,
		BlockNumber: in.BlockNumber,
		TxHash:      in.TxHash,
		LogIndex:    in.LogIndex,
		Timestamp:   in.Timestamp,
	}
	if err := burnRecords.Set(tx, id, record); err != nil {
		return nil, err
	}

	scopes := []struct {
		scope burnScope
		id    string
	}{
		{burnScopeGlobal, BurnStatID(in.Collection, constants.GLOBAL_CHAIN_ID, "")},
		{burnScopeChain, BurnStatID(in.Collection, in.ChainID, "")},
		{burnScopeSource, BurnStatID(in.Collection, in.ChainID, source)},
	}
	for _, s := range scopes {
		if err := b.applyBurnStat(tx, s.scope, s.id, record); err != nil {
			return nil, err
		}
	}

	metrics.Engine().ObserveBurn(source)
	return record, nil
}

func (b *BurnAttributor) applyBurnStat(tx store.Tx, scope burnScope, statID string, record *models.BurnRecord) error {
	stat, err := burnStats.Get(tx, statID)
	if err != nil {
		return err
	}
	if stat == nil {
		stat = &models.BurnStat{
			Collection:  record.Collection,
			TotalBurned: new(big.Int),
		}
		switch scope {
		case burnScopeChain:
			stat.ChainID = record.ChainID
		case burnScopeSource:
			stat.ChainID = record.ChainID
			stat.Source = record.Source
		}
	}

	stat.TotalBurned = models.Add(stat.TotalBurned, record.Amount)
	stat.BurnCount++
	if record.Timestamp > stat.LastBurnTime {
		stat.LastBurnTime = record.Timestamp
	}

	identityID := store.Key(string(scope), statID, record.Burner)
	identity, err := burnerIdentities.Get(tx, identityID)
	if err != nil {
		return err
	}
	if identity == nil {
		identity = &models.BurnerIdentity{
			Scope:         store.Key(string(scope), statID),
			Address:       record.Burner,
			FirstBurnTime: record.Timestamp,
		}
		stat.UniqueBurners++
	}
	if record.Timestamp > identity.LastBurnTime {
		identity.LastBurnTime = record.Timestamp
	}
	if err := burnerIdentities.Set(tx, identityID, identity); err != nil {
		return err
	}
	return burnStats.Set(tx, statID, stat)
}

func GetBurnStat(tx store.Tx, collection string, chainID uint64, source string) (*models.BurnStat, error) {
	return burnStats.Get(tx, BurnStatID(collection, chainID, source))
}

func GetBurnRecord(tx store.Tx, id string) (*models.BurnRecord, error) {
	return burnRecords.Get(tx, id)
}

// BurnSourceStats lists the per-source rows of one chain.
func BurnSourceStats(tx store.Tx, collection string, chainID uint64) ([]*models.BurnStat, error) {
	var out []*models.BurnStat
	prefix := BurnStatID(collection, chainID, "") + ":"
	err := burnStats.Scan(tx, prefix, func(_ string, stat *models.BurnStat) error {
		out = append(out, stat)
		return nil
	})
	return out, err
}
