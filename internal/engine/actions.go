package engine

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/6529-Collections/6529stats/internal/store"
	"github.com/6529-Collections/6529stats/pkg/models"
)

var actions = store.NewTable[models.Action]("action")

type ActionInput struct {
	Type        models.ActionType
	Actor       string
	Collection  string
	Timestamp   uint64
	ChainID     uint64
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
	// SubID distinguishes several actions emitted by one log.
	SubID    string
	Numeric1 *big.Int
	Numeric2 *big.Int
	Context  any
}

func ActionID(txHash string, logIndex uint64, subID string) string {
	if subID == "" {
		return fmt.Sprintf("%s_%d", txHash, logIndex)
	}
	return fmt.Sprintf("%s_%d_%s", txHash, logIndex, subID)
}

// RecordAction writes one feed row. Writing the same id twice keeps the last
// write. Context is stored verbatim when already raw JSON.
func RecordAction(tx store.Tx, in ActionInput) (*models.Action, error) {
	var ctxJSON json.RawMessage
	switch c := in.Context.(type) {
	case nil:
	case json.RawMessage:
		ctxJSON = c
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode action context: %w", err)
		}
		ctxJSON = raw
	}

	action := &models.Action{
		ID:                ActionID(in.TxHash, in.LogIndex, in.SubID),
		ActionType:        in.Type,
		Actor:             in.Actor,
		PrimaryCollection: in.Collection,
		Timestamp:         in.Timestamp,
		ChainID:           in.ChainID,
		BlockNumber:       in.BlockNumber,
		TxHash:            in.TxHash,
		LogIndex:          in.LogIndex,
		Numeric1:          copyBig(in.Numeric1),
		Numeric2:          copyBig(in.Numeric2),
		Context:           ctxJSON,
	}
	return action, actions.Set(tx, action.ID, action)
}

func GetAction(tx store.Tx, id string) (*models.Action, error) {
	return actions.Get(tx, id)
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
