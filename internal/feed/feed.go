package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/6529-Collections/6529stats/internal/db"
	"github.com/6529-Collections/6529stats/internal/metrics"
	"github.com/6529-Collections/6529stats/pkg/models"
	"go.uber.org/zap"
)

const actionsTable = "actions"

var actionColumns = []string{
	"id", "action_type", "actor", "collection", "chain_id", "timestamp", "block_number",
	"tx_hash", "log_index", "numeric1", "numeric2", "context",
}

// actionRow mirrors the actions table column for column, in order.
type actionRow struct {
	Id          string
	ActionType  string
	Actor       string
	Collection  string
	ChainId     uint64
	Timestamp   uint64
	BlockNumber uint64
	TxHash      string
	LogIndex    uint64
	Numeric1    sql.NullString
	Numeric2    sql.NullString
	Context     sql.NullString
}

func scanAction(scanner db.RowScanner) (*models.Action, error) {
	var a actionRow
	err := scanner.Scan(
		&a.Id, &a.ActionType, &a.Actor, &a.Collection, &a.ChainId, &a.Timestamp, &a.BlockNumber,
		&a.TxHash, &a.LogIndex, &a.Numeric1, &a.Numeric2, &a.Context,
	)
	if err != nil {
		return nil, err
	}
	return a.toAction(), nil
}

func toRow(a *models.Action) actionRow {
	return actionRow{
		Id:          a.ID,
		ActionType:  a.ActionType.String(),
		Actor:       a.Actor,
		Collection:  a.PrimaryCollection,
		ChainId:     a.ChainID,
		Timestamp:   a.Timestamp,
		BlockNumber: a.BlockNumber,
		TxHash:      a.TxHash,
		LogIndex:    a.LogIndex,
		Numeric1:    bigToNull(a.Numeric1),
		Numeric2:    bigToNull(a.Numeric2),
		Context:     sql.NullString{String: string(a.Context), Valid: len(a.Context) > 0},
	}
}

func (a *actionRow) toAction() *models.Action {
	action := &models.Action{
		ID:                a.Id,
		ActionType:        models.ActionType(a.ActionType),
		Actor:             a.Actor,
		PrimaryCollection: a.Collection,
		Timestamp:         a.Timestamp,
		ChainID:           a.ChainId,
		BlockNumber:       a.BlockNumber,
		TxHash:            a.TxHash,
		LogIndex:          a.LogIndex,
		Numeric1:          nullToBig(a.Numeric1),
		Numeric2:          nullToBig(a.Numeric2),
	}
	if a.Context.Valid {
		action.Context = json.RawMessage(a.Context.String)
	}
	return action
}

func bigToNull(v *big.Int) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func nullToBig(v sql.NullString) *big.Int {
	if !v.Valid {
		return nil
	}
	n, ok := new(big.Int).SetString(v.String, 10)
	if !ok {
		return nil
	}
	return n
}

// Filter narrows an actions query. Zero values match everything.
type Filter struct {
	Actor      string
	Collection string
	ChainID    *uint64
}

func (f Filter) where() (string, []interface{}) {
	var clauses []string
	var params []interface{}
	if f.Actor != "" {
		clauses = append(clauses, "actor = ?")
		params = append(params, strings.ToLower(f.Actor))
	}
	if f.Collection != "" {
		clauses = append(clauses, "collection = ?")
		params = append(params, f.Collection)
	}
	if f.ChainID != nil {
		clauses = append(clauses, "chain_id = ?")
		params = append(params, *f.ChainID)
	}
	return strings.Join(clauses, " AND "), params
}

// Feed is the queryable sqlite copy of the action log. The badger store
// stays authoritative; the mirror can be rebuilt by replaying actions.
type Feed struct {
	db *sql.DB
}

func New(sqlite *sql.DB) *Feed {
	return &Feed{db: sqlite}
}

// Mirror upserts actions in one sqlite transaction.
func (f *Feed) Mirror(ctx context.Context, actions []*models.Action) error {
	if len(actions) == 0 {
		return nil
	}
	rows := make([]actionRow, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, toRow(a))
	}
	_, err := db.TxRunner(ctx, f.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, db.Upsert(tx, actionsTable, "id", rows)
	})
	return err
}

// MirrorOrLog mirrors actions and only logs failures; the feed never blocks
// event processing.
func (f *Feed) MirrorOrLog(ctx context.Context, actions []*models.Action) {
	if err := f.Mirror(ctx, actions); err != nil {
		metrics.Engine().ObserveFeedFailure()
		zap.L().Error("Failed to mirror actions to feed", zap.Int("actions", len(actions)), zap.Error(err))
	}
}

// Query returns one page of actions, newest first.
func (f *Feed) Query(ctx context.Context, filter Filter, page, pageSize int) (int, []*models.Action, error) {
	where, args := filter.where()
	return db.QueryPage(ctx, f.db, db.PageQuery{
		Table:    actionsTable,
		Columns:  actionColumns,
		Where:    where,
		Args:     args,
		OrderBy:  []string{"timestamp", "block_number", "log_index", "id"},
		Page:     page,
		PageSize: pageSize,
	}, scanAction)
}
