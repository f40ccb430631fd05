package engine

import (
	"fmt"
	"math/big"
)

type EventType string

func (t EventType) String() string {
	return string(t)
}

const (
	EventERC721Transfer        EventType = "erc721.Transfer"
	EventERC1155TransferSingle EventType = "erc1155.TransferSingle"
	EventERC1155TransferBatch  EventType = "erc1155.TransferBatch"
	EventERC20Transfer         EventType = "erc20.Transfer"
	EventVaultDeposit          EventType = "vault.Deposit"
	EventVaultWithdraw         EventType = "vault.Withdraw"
	EventStaked                EventType = "staking.Staked"
	EventUnstaked              EventType = "staking.Unstaked"
	EventRewardClaimed         EventType = "staking.RewardClaimed"
	EventLiquidated            EventType = "lending.Liquidated"
	EventTradeProposed         EventType = "trade.Proposed"
	EventTradeAccepted         EventType = "trade.Accepted"
	EventTradeCancelled        EventType = "trade.Cancelled"
)

// TxMeta describes the transaction an event was emitted in. From is the
// originating externally owned account, To the top-level called contract.
type TxMeta struct {
	From string
	To   string
}

// Event is one decoded contract log as delivered by the ingestion layer.
type Event struct {
	Type        EventType
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	TxHash      string
	LogIndex    uint64
	Contract    string
	Tx          TxMeta
	Params      Params
}

// ID identifies the event across chains; it keys the idempotence marker.
func (e Event) ID() string {
	return fmt.Sprintf("%d_%s_%d", e.ChainID, e.TxHash, e.LogIndex)
}

type Params interface {
	params()
}

// TransferParams covers ERC-20, ERC-721 and ERC-1155 single transfers.
// TokenID is nil for ERC-20; Amount is ignored for ERC-721.
type TransferParams struct {
	From    string
	To      string
	TokenID *big.Int
	Amount  *big.Int
}

type BatchTransferParams struct {
	From     string
	To       string
	TokenIDs []*big.Int
	Amounts  []*big.Int
}

// VaultParams carries ERC-4626 style Deposit / Withdraw fields.
type VaultParams struct {
	Sender   string
	Owner    string
	Receiver string
	Assets   *big.Int
	Shares   *big.Int
}

type StakingParams struct {
	User   string
	Amount *big.Int
}

type LiquidationParams struct {
	Borrower   string
	Liquidator string
	Repaid     *big.Int
	Seized     *big.Int
}

type TradeParams struct {
	TradeID          *big.Int
	Proposer         string
	Counterparty     string
	OfferedTokenID   *big.Int
	RequestedTokenID *big.Int
}

func (TransferParams) params()      {}
func (BatchTransferParams) params() {}
func (VaultParams) params()         {}
func (StakingParams) params()       {}
func (LiquidationParams) params()   {}
func (TradeParams) params()         {}
