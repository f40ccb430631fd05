package engine

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/6529-Collections/6529stats/internal/registry"
	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/models"
)

// handlerContext is what every handler sees for one event.
type handlerContext struct {
	tx    store.Tx
	event Event
	asset registry.Asset
}

type handlerFunc func(e *Engine, hc handlerContext) ([]*models.Action, error)

type handler struct {
	kinds []registry.AssetKind
	fn    handlerFunc
}

func (h handler) accepts(kind registry.AssetKind) bool {
	for _, k := range h.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

var handlers = map[EventType]handler{
	EventERC721Transfer:        {kinds: []registry.AssetKind{registry.KindERC721}, fn: handleTransfer},
	EventERC1155TransferSingle: {kinds: []registry.AssetKind{registry.KindERC1155}, fn: handleTransfer},
	EventERC1155TransferBatch:  {kinds: []registry.AssetKind{registry.KindERC1155}, fn: handleTransferBatch},
	EventERC20Transfer:         {kinds: []registry.AssetKind{registry.KindERC20}, fn: handleTransfer},
	EventVaultDeposit:          {kinds: []registry.AssetKind{registry.KindVault}, fn: handleVaultDeposit},
	EventVaultWithdraw:         {kinds: []registry.AssetKind{registry.KindVault}, fn: handleVaultWithdraw},
	EventStaked:                {kinds: []registry.AssetKind{registry.KindStaking}, fn: handleStaking(fieldStaked, models.ACTION_STAKE, 1)},
	EventUnstaked:              {kinds: []registry.AssetKind{registry.KindStaking}, fn: handleStaking(fieldUnstaked, models.ACTION_UNSTAKE, -1)},
	EventRewardClaimed:         {kinds: []registry.AssetKind{registry.KindStaking}, fn: handleStaking(fieldClaimed, models.ACTION_CLAIM, 0)},
	EventLiquidated:            {kinds: []registry.AssetKind{registry.KindLending}, fn: handleLiquidation},
	EventTradeProposed:         {kinds: []registry.AssetKind{registry.KindTrade}, fn: handleTrade(models.ACTION_TRADE_PROPOSED)},
	EventTradeAccepted:         {kinds: []registry.AssetKind{registry.KindTrade}, fn: handleTrade(models.ACTION_TRADE_ACCEPTED)},
	EventTradeCancelled:        {kinds: []registry.AssetKind{registry.KindTrade}, fn: handleTrade(models.ACTION_TRADE_CANCELLED)},
}

type transferContext struct {
	Contract  string `json:"contract"`
	From      string `json:"from"`
	To        string `json:"to"`
	TokenID   string `json:"token_id,omitempty"`
	HomeChain *bool  `json:"home_chain,omitempty"`
	Source    string `json:"burn_source,omitempty"`
	Burner    string `json:"burner,omitempty"`
}

func handleTransfer(e *Engine, hc handlerContext) ([]*models.Action, error) {
	p, ok := hc.event.Params.(TransferParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects transfer params, got %T", ErrMalformedEvent, hc.event.Type, hc.event.Params)
	}
	delta, ok, err := NormalizeTransfer(p.From, p.To, p.TokenID, p.Amount, hc.event.Type != EventERC721Transfer)
	if err != nil || !ok {
		return nil, err
	}
	action, err := e.applyTransfer(hc, delta, -1)
	if err != nil {
		return nil, err
	}
	return []*models.Action{action}, nil
}

func handleTransferBatch(e *Engine, hc handlerContext) ([]*models.Action, error) {
	p, ok := hc.event.Params.(BatchTransferParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects batch params, got %T", ErrMalformedEvent, hc.event.Type, hc.event.Params)
	}
	if len(p.TokenIDs) != len(p.Amounts) {
		return nil, fmt.Errorf("%w: batch has %d ids and %d amounts", ErrMalformedEvent, len(p.TokenIDs), len(p.Amounts))
	}

	var out []*models.Action
	for i := range p.TokenIDs {
		delta, ok, err := NormalizeTransfer(p.From, p.To, p.TokenIDs[i], p.Amounts[i], true)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		if !ok {
			continue
		}
		action, err := e.applyTransfer(hc, delta, i)
		if err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, nil
}

// applyTransfer moves one normalized delta through the ledger, the collection
// rollup, burn attribution and the feed. sub is the batch position or -1.
func (e *Engine) applyTransfer(hc handlerContext, delta Delta, sub int) (*models.Action, error) {
	ev := hc.event
	collection := hc.asset.Key

	var transitions []Transition
	// debit before credit so a self-transfer nets out through both legs
	if !isBurnAddress(delta.From) {
		t, err := e.ledger.ApplyDelta(hc.tx, collection, ev.ChainID, delta.From, new(big.Int).Neg(delta.Quantity), ev.Timestamp, false)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	if !isBurnAddress(delta.To) {
		t, err := e.ledger.ApplyDelta(hc.tx, collection, ev.ChainID, delta.To, delta.Quantity, ev.Timestamp, delta.IsMint)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}

	if _, err := ApplyMintBurnOrTransfer(hc.tx, collection, ev.ChainID, StatsDelta{
		IsMint:      delta.IsMint,
		IsBurn:      delta.IsBurn,
		Quantity:    delta.Quantity,
		Transitions: transitions,
	}, ev.Timestamp); err != nil {
		return nil, err
	}

	actx := transferContext{Contract: ev.Contract, From: delta.From, To: delta.To}
	if delta.TokenID != nil {
		actx.TokenID = delta.TokenID.String()
	}

	in := ActionInput{
		Type:        models.ACTION_TRANSFER,
		Actor:       delta.From,
		Collection:  collection,
		Timestamp:   ev.Timestamp,
		ChainID:     ev.ChainID,
		BlockNumber: ev.BlockNumber,
		TxHash:      ev.TxHash,
		LogIndex:    ev.LogIndex,
		Numeric1:    delta.Quantity,
		Numeric2:    delta.TokenID,
	}
	if sub >= 0 {
		in.SubID = strconv.Itoa(sub)
	}

	switch {
	case delta.IsMint:
		in.Type = models.ACTION_MINT
		in.Actor = delta.To
		home := hc.asset.IsHomeChain(ev.ChainID)
		actx.HomeChain = &home
	case delta.IsBurn:
		in.Type = models.ACTION_BURN
	}

	// a mint straight to a burn address is also a burn
	if delta.IsBurn && hc.asset.TrackBurns {
		burnFrom := delta.From
		if delta.IsMint && ev.Tx.From != "" {
			burnFrom = ev.Tx.From
		}
		record, err := e.burns.Record(hc.tx, BurnInput{
			Collection:  collection,
			ChainID:     ev.ChainID,
			From:        burnFrom,
			Amount:      delta.Quantity,
			Tx:          ev.Tx,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash,
			LogIndex:    ev.LogIndex,
			Sub:         sub,
			Timestamp:   ev.Timestamp,
		})
		if err != nil {
			return nil, err
		}
		if record != nil {
			if !delta.IsMint {
				in.Actor = record.Burner
			}
			actx.Source = record.Source
			actx.Burner = record.Burner
		}
	}
	in.Context = actx
	return RecordAction(hc.tx, in)
}

type vaultContext struct {
	Contract string `json:"contract"`
	Sender   string `json:"sender,omitempty"`
	Receiver string `json:"receiver,omitempty"`
}

func normalizeVault(hc handlerContext) (VaultParams, bool, error) {
	p, ok := hc.event.Params.(VaultParams)
	if !ok {
		return VaultParams{}, false, fmt.Errorf("%w: %s expects vault params, got %T", ErrMalformedEvent, hc.event.Type, hc.event.Params)
	}
	var err error
	if p.Owner, err = NormalizeAddress(p.Owner); err != nil {
		return VaultParams{}, false, err
	}
	if p.Sender, err = NormalizeAddress(p.Sender); err != nil {
		return VaultParams{}, false, err
	}
	if p.Receiver, err = NormalizeAddress(p.Receiver); err != nil {
		return VaultParams{}, false, err
	}
	if isZeroAddress(p.Owner) {
		return VaultParams{}, false, fmt.Errorf("%w: vault owner is the zero address", ErrMalformedEvent)
	}
	if p.Assets == nil || p.Assets.Sign() < 0 || p.Shares == nil || p.Shares.Sign() < 0 {
		return VaultParams{}, false, fmt.Errorf("%w: vault amounts must be non-negative integers", ErrMalformedEvent)
	}
	if p.Assets.Sign() == 0 && p.Shares.Sign() == 0 {
		return p, false, nil
	}
	return p, true, nil
}

func handleVaultDeposit(e *Engine, hc handlerContext) ([]*models.Action, error) {
	return vaultMovement(e, hc, fieldDeposited, models.ACTION_DEPOSIT, 1)
}

func handleVaultWithdraw(e *Engine, hc handlerContext) ([]*models.Action, error) {
	return vaultMovement(e, hc, fieldWithdrawn, models.ACTION_WITHDRAW, -1)
}

func vaultMovement(e *Engine, hc handlerContext, field positionField, actionType models.ActionType, sign int64) ([]*models.Action, error) {
	p, ok, err := normalizeVault(hc)
	if err != nil || !ok {
		return nil, err
	}
	ev := hc.event
	if _, err := e.positions.Apply(hc.tx, PositionChange{
		Pool:         hc.asset.Key,
		ChainID:      ev.ChainID,
		User:         p.Owner,
		Timestamp:    ev.Timestamp,
		Field:        field,
		Amount:       p.Assets,
		BalanceDelta: new(big.Int).Mul(p.Shares, big.NewInt(sign)),
	}); err != nil {
		return nil, err
	}

	action, err := RecordAction(hc.tx, ActionInput{
		Type:        actionType,
		Actor:       p.Owner,
		Collection:  hc.asset.Key,
		Timestamp:   ev.Timestamp,
		ChainID:     ev.ChainID,
		BlockNumber: ev.BlockNumber,
		TxHash:      ev.TxHash,
		LogIndex:    ev.LogIndex,
		Numeric1:    p.Assets,
		Numeric2:    p.Shares,
		Context:     vaultContext{Contract: ev.Contract, Sender: p.Sender, Receiver: p.Receiver},
	})
	if err != nil {
		return nil, err
	}
	return []*models.Action{action}, nil
}

func handleStaking(field positionField, actionType models.ActionType, sign int64) handlerFunc {
	return func(e *Engine, hc handlerContext) ([]*models.Action, error) {
		p, ok := hc.event.Params.(StakingParams)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects staking params, got %T", ErrMalformedEvent, hc.event.Type, hc.event.Params)
		}
		user, err := NormalizeAddress(p.User)
		if err != nil {
			return nil, err
		}
		if p.Amount == nil || p.Amount.Sign() < 0 {
			return nil, fmt.Errorf("%w: staking amount must be a non-negative integer", ErrMalformedEvent)
		}
		if p.Amount.Sign() == 0 {
			return nil, nil
		}

		ev := hc.event
		if _, err := e.positions.Apply(hc.tx, PositionChange{
			Pool:         hc.asset.Key,
			ChainID:      ev.ChainID,
			User:         user,
			Timestamp:    ev.Timestamp,
			Field:        field,
			Amount:       p.Amount,
			BalanceDelta: new(big.Int).Mul(p.Amount, big.NewInt(sign)),
		}); err != nil {
			return nil, err
		}

		action, err := RecordAction(hc.tx, ActionInput{
			Type:        actionType,
			Actor:       user,
			Collection:  hc.asset.Key,
			Timestamp:   ev.Timestamp,
			ChainID:     ev.ChainID,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash,
			LogIndex:    ev.LogIndex,
			Numeric1:    p.Amount,
			Context:     map[string]string{"contract": ev.Contract},
		})
		if err != nil {
			return nil, err
		}
		return []*models.Action{action}, nil
	}
}

type liquidationContext struct {
	Contract   string `json:"contract"`
	Borrower   string `json:"borrower"`
	Liquidator string `json:"liquidator"`
}

// handleLiquidation emits one action for each side of the liquidation.
// Seized collateral leaves the borrower's position.
func handleLiquidation(e *Engine, hc handlerContext) ([]*models.Action, error) {
	p, ok := hc.event.Params.(LiquidationParams)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects liquidation params, got %T", ErrMalformedEvent, hc.event.Type, hc.event.Params)
	}
	borrower, err := NormalizeAddress(p.Borrower)
	if err != nil {
		return nil, err
	}
	liquidator, err := NormalizeAddress(p.Liquidator)
	if err != nil {
		return nil, err
	}
	if p.Repaid == nil || p.Repaid.Sign() < 0 || p.Seized == nil || p.Seized.Sign() < 0 {
		return nil, fmt.Errorf("%w: liquidation amounts must be non-negative integers", ErrMalformedEvent)
	}

	ev := hc.event
	if _, err := e.positions.Apply(hc.tx, PositionChange{
		Pool:         hc.asset.Key,
		ChainID:      ev.ChainID,
		User:         borrower,
		Timestamp:    ev.Timestamp,
		Field:        fieldLiquidated,
		Amount:       p.Seized,
		BalanceDelta: new(big.Int).Neg(p.Seized),
	}); err != nil {
		return nil, err
	}

	actx := liquidationContext{Contract: ev.Contract, Borrower: borrower, Liquidator: liquidator}
	var out []*models.Action
	for _, side := range []struct {
		actionType models.ActionType
		actor      string
	}{
		{models.ACTION_LIQUIDATED, borrower},
		{models.ACTION_LIQUIDATOR, liquidator},
	} {
		action, err := RecordAction(hc.tx, ActionInput{
			Type:        side.actionType,
			Actor:       side.actor,
			Collection:  hc.asset.Key,
			Timestamp:   ev.Timestamp,
			ChainID:     ev.ChainID,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash,
			LogIndex:    ev.LogIndex,
			SubID:       string(side.actionType),
			Numeric1:    p.Seized,
			Numeric2:    p.Repaid,
			Context:     actx,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, action)
	}
	return out, nil
}

type tradeContext struct {
	Contract     string `json:"contract"`
	TradeID      string `json:"trade_id"`
	Proposer     string `json:"proposer"`
	Counterparty string `json:"counterparty,omitempty"`
}

func handleTrade(actionType models.ActionType) handlerFunc {
	return func(e *Engine, hc handlerContext) ([]*models.Action, error) {
		p, ok := hc.event.Params.(TradeParams)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects trade params, got %T", ErrMalformedEvent, hc.event.Type, hc.event.Params)
		}
		if p.TradeID == nil || p.TradeID.Sign() < 0 {
			return nil, fmt.Errorf("%w: trade id must be a non-negative integer", ErrMalformedEvent)
		}
		proposer, err := NormalizeAddress(p.Proposer)
		if err != nil {
			return nil, err
		}
		counterparty, err := NormalizeAddress(p.Counterparty)
		if err != nil {
			return nil, err
		}

		actor := proposer
		if actionType == models.ACTION_TRADE_ACCEPTED && !isZeroAddress(counterparty) {
			actor = counterparty
		}
		actx := tradeContext{Contract: hc.event.Contract, TradeID: p.TradeID.String(), Proposer: proposer}
		if !isZeroAddress(counterparty) {
			actx.Counterparty = counterparty
		}

		ev := hc.event
		action, err := RecordAction(hc.tx, ActionInput{
			Type:        actionType,
			Actor:       actor,
			Collection:  hc.asset.Key,
			Timestamp:   ev.Timestamp,
			ChainID:     ev.ChainID,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash,
			LogIndex:    ev.LogIndex,
			Numeric1:    p.OfferedTokenID,
			Numeric2:    p.RequestedTokenID,
			Context:     actx,
		})
		if err != nil {
			return nil, err
		}
		return []*models.Action{action}, nil
	}
}
