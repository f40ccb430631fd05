package engine

import (
	"math/big"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/models"
)

var (
	positions = store.NewTable[models.Position]("position")
	poolStats = store.NewTable[models.PoolStat]("pool")
)

func positionID(pool string, chainID uint64, user string) string {
	return store.Key(pool, strconv.FormatUint(chainID, 10), user)
}

func poolStatID(pool string, chainID uint64) string {
	return store.Key(pool, strconv.FormatUint(chainID, 10))
}

type positionField int

const (
	fieldDeposited positionField = iota
	fieldWithdrawn
	fieldStaked
	fieldUnstaked
	fieldClaimed
	fieldLiquidated
)

// PositionChange is one accumulator bump plus an optional signed change of the
// user's live balance in the pool.
type PositionChange struct {
	Pool         string
	ChainID      uint64
	User         string
	Timestamp    uint64
	Field        positionField
	Amount       *big.Int
	BalanceDelta *big.Int
}

type PositionTracker struct {
	ledger *Ledger
}

func NewPositionTracker(ledger *Ledger) *PositionTracker {
	return &PositionTracker{ledger: ledger}
}

// Apply updates the user's Position and the pool rollup. The live balance
// goes through the holder ledger so it is floored and its transitions drive
// the active participant count.
func (p *PositionTracker) Apply(tx store.Tx, c PositionChange) (*models.Position, error) {
	id := positionID(c.Pool, c.ChainID, c.User)
	position, err := positions.Get(tx, id)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = &models.Position{
			User:              c.User,
			Pool:              c.Pool,
			ChainID:           c.ChainID,
			FirstActivityTime: c.Timestamp,
		}
	}
	stat, err := poolStats.Get(tx, poolStatID(c.Pool, c.ChainID))
	if err != nil {
		return nil, err
	}
	if stat == nil {
		stat = &models.PoolStat{Pool: c.Pool, ChainID: c.ChainID}
	}

	amount := models.OrZero(c.Amount)
	switch c.Field {
	case fieldDeposited:
		position.Deposited = models.Add(position.Deposited, amount)
		stat.TotalDeposited = models.Add(stat.TotalDeposited, amount)
	case fieldWithdrawn:
		position.Withdrawn = models.Add(position.Withdrawn, amount)
		stat.TotalWithdrawn = models.Add(stat.TotalWithdrawn, amount)
	case fieldStaked:
		position.Staked = models.Add(position.Staked, amount)
		stat.TotalStaked = models.Add(stat.TotalStaked, amount)
	case fieldUnstaked:
		position.Unstaked = models.Add(position.Unstaked, amount)
		stat.TotalUnstaked = models.Add(stat.TotalUnstaked, amount)
	case fieldClaimed:
		position.Claimed = models.Add(position.Claimed, amount)
		stat.TotalClaimed = models.Add(stat.TotalClaimed, amount)
	case fieldLiquidated:
		position.Liquidated = models.Add(position.Liquidated, amount)
		stat.TotalLiquidated = models.Add(stat.TotalLiquidated, amount)
	}

	if !models.IsZero(c.BalanceDelta) {
		transition, err := p.ledger.ApplyDelta(tx, c.Pool, c.ChainID, c.User, c.BalanceDelta, c.Timestamp, false)
		if err != nil {
			return nil, err
		}
		position.Balance = transition.BalanceAfter
		stat.TotalBalance = models.Add(stat.TotalBalance, transition.Applied())
		stat.ActiveParticipants += transition.HolderDelta()
	} else {
		position.Balance = models.OrZero(position.Balance)
	}

	if c.Timestamp > position.LastActivityTime {
		position.LastActivityTime = c.Timestamp
	}
	if c.Timestamp > stat.LastActivityTime {
		stat.LastActivityTime = c.Timestamp
	}

	if err := positions.Set(tx, id, position); err != nil {
		return nil, err
	}
	return position, poolStats.Set(tx, poolStatID(c.Pool, c.ChainID), stat)
}

func GetPosition(tx store.Tx, pool string, chainID uint64, user string) (*models.Position, error) {
	return positions.Get(tx, positionID(pool, chainID, user))
}

func GetPoolStat(tx store.Tx, pool string, chainID uint64) (*models.PoolStat, error) {
	return poolStats.Get(tx, poolStatID(pool, chainID))
}
