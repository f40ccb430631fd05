package models

import (
	"encoding/json"
	"math/big"
)

type ActionType string

func (t ActionType) String() string {
	return string(t)
}

const (
	ACTION_MINT            ActionType = "mint"
	ACTION_BURN            ActionType = "burn"
	ACTION_TRANSFER        ActionType = "transfer"
	ACTION_DEPOSIT         ActionType = "deposit"
	ACTION_WITHDRAW        ActionType = "withdraw"
	ACTION_STAKE           ActionType = "stake"
	ACTION_UNSTAKE         ActionType = "unstake"
	ACTION_CLAIM           ActionType = "claim"
	ACTION_LIQUIDATED      ActionType = "liquidated"
	ACTION_LIQUIDATOR      ActionType = "liquidator"
	ACTION_TRADE_PROPOSED  ActionType = "trade_proposed"
	ACTION_TRADE_ACCEPTED  ActionType = "trade_accepted"
	ACTION_TRADE_CANCELLED ActionType = "trade_cancelled"
)

// HolderBalance is one address's balance inside an aggregation scope
// (a collection, token or pool) on one chain. Balance never goes below zero.
type HolderBalance struct {
	Scope             string   `json:"scope"`
	ChainID           uint64   `json:"chain_id"`
	Address           string   `json:"address"`
	Balance           *big.Int `json:"balance"`
	TotalMinted       *big.Int `json:"total_minted"`
	FirstActivityTime uint64   `json:"first_activity_time"`
	LastActivityTime  uint64   `json:"last_activity_time"`
	FirstMintTime     uint64   `json:"first_mint_time,omitempty"`
}

// CollectionStat is the per (collection, chain) rollup.
// TotalSupply always equals TotalMinted - TotalBurned.
type CollectionStat struct {
	Collection       string   `json:"collection"`
	ChainID          uint64   `json:"chain_id"`
	TotalSupply      *big.Int `json:"total_supply"`
	TotalMinted      *big.Int `json:"total_minted"`
	TotalBurned      *big.Int `json:"total_burned"`
	UniqueHolders    int64    `json:"unique_holders"`
	LastMintTime     uint64   `json:"last_mint_time"`
	LastActivityTime uint64   `json:"last_activity_time"`
}

type BurnRecord struct {
	ID          string   `json:"id"`
	Collection  string   `json:"collection"`
	ChainID     uint64   `json:"chain_id"`
	Amount      *big.Int `json:"amount"`
	Source      string   `json:"source"`
	Burner      string   `json:"burner"`
	From        string   `json:"from"`
	TxFrom      string   `json:"tx_from"`
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Timestamp   uint64   `json:"timestamp"`
}

// BurnerIdentity marks that Address has burned at least once within Scope.
type BurnerIdentity struct {
	Scope         string `json:"scope"`
	Address       string `json:"address"`
	FirstBurnTime uint64 `json:"first_burn_time"`
	LastBurnTime  uint64 `json:"last_burn_time"`
}

// BurnStat counters exist at three scopes per collection: all chains
// (ChainID 0, no Source), one chain (no Source) and one chain + source.
type BurnStat struct {
	Collection    string   `json:"collection"`
	ChainID       uint64   `json:"chain_id"`
	Source        string   `json:"source,omitempty"`
	TotalBurned   *big.Int `json:"total_burned"`
	BurnCount     uint64   `json:"burn_count"`
	UniqueBurners uint64   `json:"unique_burners"`
	LastBurnTime  uint64   `json:"last_burn_time"`
}

type Action struct {
	ID                string          `json:"id"`
	ActionType        ActionType      `json:"action_type"`
	Actor             string          `json:"actor"`
	PrimaryCollection string          `json:"primary_collection"`
	Timestamp         uint64          `json:"timestamp"`
	ChainID           uint64          `json:"chain_id"`
	BlockNumber       uint64          `json:"block_number"`
	TxHash            string          `json:"tx_hash"`
	LogIndex          uint64          `json:"log_index"`
	Numeric1          *big.Int        `json:"numeric1,omitempty"`
	Numeric2          *big.Int        `json:"numeric2,omitempty"`
	Context           json.RawMessage `json:"context,omitempty"`
}

// Position tracks one user's activity in a vault, staking pool or lending
// market. Everything but Balance is a monotonic accumulator; Balance mirrors
// the user's clamped ledger balance in the pool scope.
type Position struct {
	User              string   `json:"user"`
	Pool              string   `json:"pool"`
	ChainID           uint64   `json:"chain_id"`
	Deposited         *big.Int `json:"deposited"`
	Withdrawn         *big.Int `json:"withdrawn"`
	Staked            *big.Int `json:"staked"`
	Unstaked          *big.Int `json:"unstaked"`
	Claimed           *big.Int `json:"claimed"`
	Liquidated        *big.Int `json:"liquidated"`
	Balance           *big.Int `json:"balance"`
	FirstActivityTime uint64   `json:"first_activity_time"`
	LastActivityTime  uint64   `json:"last_activity_time"`
}

type PoolStat struct {
	Pool               string   `json:"pool"`
	ChainID            uint64   `json:"chain_id"`
	TotalDeposited     *big.Int `json:"total_deposited"`
	TotalWithdrawn     *big.Int `json:"total_withdrawn"`
	TotalStaked        *big.Int `json:"total_staked"`
	TotalUnstaked      *big.Int `json:"total_unstaked"`
	TotalClaimed       *big.Int `json:"total_claimed"`
	TotalLiquidated    *big.Int `json:"total_liquidated"`
	TotalBalance       *big.Int `json:"total_balance"`
	ActiveParticipants int64    `json:"active_participants"`
	LastActivityTime   uint64   `json:"last_activity_time"`
}

// ProcessedEvent is the idempotence marker written with every applied event.
type ProcessedEvent struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"block_number"`
	ProcessedAt uint64 `json:"processed_at"`
}
