package engine

import (
	"math/big"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/metrics"
	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/models"
	"go.uber.org/zap"
)

var holders = store.NewTable[models.HolderBalance]("holder")

func holderID(scope string, chainID uint64, address string) string {
	return store.Key(scope, strconv.FormatUint(chainID, 10), address)
}

// Transition describes how one ApplyDelta call moved a balance.
type Transition struct {
	BalanceBefore   *big.Int
	BalanceAfter    *big.Int
	CrossedToZero   bool
	CrossedFromZero bool
	Clamped         bool
}

// HolderDelta is the +1/0/-1 contribution of the transition to a unique holder count.
func (t Transition) HolderDelta() int64 {
	switch {
	case t.CrossedFromZero:
		return 1
	case t.CrossedToZero:
		return -1
	}
	return 0
}

// Applied is the balance change that actually landed after flooring.
func (t Transition) Applied() *big.Int {
	return models.Sub(t.BalanceAfter, t.BalanceBefore)
}

type Ledger struct {
	// Rows returning to exactly zero are deleted instead of kept as zero rows.
	sparse bool
}

func NewLedger(sparse bool) *Ledger {
	return &Ledger{sparse: sparse}
}

// ApplyDelta adds signedAmount to the balance of address in (scope, chainID),
// flooring the result at zero. The returned transition flags are the only
// source for unique holder changes.
func (l *Ledger) ApplyDelta(tx store.Tx, scope string, chainID uint64, address string, signedAmount *big.Int, timestamp uint64, isMint bool) (Transition, error) {
	id := holderID(scope, chainID, address)
	holder, err := holders.Get(tx, id)
	if err != nil {
		return Transition{}, err
	}
	stored := holder != nil
	if !stored {
		holder = &models.HolderBalance{
			Scope:       scope,
			ChainID:     chainID,
			Address:     address,
			Balance:     new(big.Int),
			TotalMinted: new(big.Int),
		}
	}

	before := models.OrZero(holder.Balance)
	after := models.Add(before, signedAmount)
	transition := Transition{BalanceBefore: new(big.Int).Set(before)}
	if after.Sign() < 0 {
		zap.L().Warn("Balance underflow floored at zero",
			zap.String("scope", scope),
			zap.Uint64("chainId", chainID),
			zap.String("address", address),
			zap.String("balance", before.String()),
			zap.String("delta", models.OrZero(signedAmount).String()),
		)
		metrics.Engine().ObserveFloorClamp("holder_balance")
		after = new(big.Int)
		transition.Clamped = true
	}
	transition.BalanceAfter = after
	transition.CrossedToZero = before.Sign() > 0 && after.Sign() == 0
	transition.CrossedFromZero = before.Sign() == 0 && after.Sign() > 0

	if l.sparse && after.Sign() == 0 {
		if before.Sign() > 0 {
			return transition, holders.DeleteUnsafe(tx, id)
		}
		// nothing stored and nothing to store
		return transition, nil
	}
	if !stored && after.Sign() == 0 {
		// rows start with the first nonzero credit
		return transition, nil
	}

	holder.Balance = after
	if holder.FirstActivityTime == 0 && after.Sign() > 0 {
		holder.FirstActivityTime = timestamp
	}
	if timestamp > holder.LastActivityTime {
		holder.LastActivityTime = timestamp
	}
	if isMint && signedAmount.Sign() > 0 {
		holder.TotalMinted = models.Add(holder.TotalMinted, signedAmount)
		if holder.FirstMintTime == 0 {
			holder.FirstMintTime = timestamp
		}
	}
	return transition, holders.Set(tx, id, holder)
}

func (l *Ledger) Get(tx store.Tx, scope string, chainID uint64, address string) (*models.HolderBalance, error) {
	return holders.Get(tx, holderID(scope, chainID, address))
}
