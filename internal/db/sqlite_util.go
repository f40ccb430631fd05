package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type RowScanner interface {
	Scan(dest ...interface{}) error
}

// TxRunner runs fn inside one sqlite transaction. The transaction commits
// only when fn succeeds and ctx is still live; anything else rolls back.
func TxRunner[T any](ctx context.Context, db *sql.DB, fn func(*sql.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := fn(tx)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("context canceled before commit: %w", ctx.Err())
	} else if err != nil {
		err = fmt.Errorf("failed to execute transaction: %w", err)
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			zap.L().Error("failed to rollback transaction", zap.Error(rbErr))
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		zap.L().Error("failed to commit transaction", zap.Error(err))
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// PageQuery selects one page of a single table. Every OrderBy column sorts
// descending, newest rows first.
type PageQuery struct {
	Table    string
	Columns  []string
	Where    string
	Args     []interface{}
	OrderBy  []string
	Page     int
	PageSize int
}

func (q PageQuery) whereClause() string {
	if q.Where == "" {
		return ""
	}
	return " WHERE " + q.Where
}

// QueryPage returns the total number of matching rows and the rows of the
// requested page, each converted by scan. Pages start at 1.
func QueryPage[T any](ctx context.Context, q Querier, pq PageQuery, scan func(RowScanner) (T, error)) (int, []T, error) {
	if len(pq.Columns) == 0 || len(pq.OrderBy) == 0 {
		return 0, nil, errors.New("page query needs columns and an order")
	}
	if pq.Page < 1 || pq.PageSize < 1 {
		return 0, nil, fmt.Errorf("invalid page %d of size %d", pq.Page, pq.PageSize)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", pq.Table, pq.whereClause())
	if err := q.QueryRowContext(ctx, countQuery, pq.Args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count %s: %w", pq.Table, err)
	}
	offset := (pq.Page - 1) * pq.PageSize
	if total == 0 || offset >= total {
		return total, nil, nil
	}

	orders := make([]string, len(pq.OrderBy))
	for i, col := range pq.OrderBy {
		orders[i] = col + " DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT ? OFFSET ?",
		strings.Join(pq.Columns, ", "), pq.Table, pq.whereClause(), strings.Join(orders, ", "))
	args := append(append([]interface{}{}, pq.Args...), pq.PageSize, offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query %s: %w", pq.Table, err)
	}
	defer rows.Close()

	data := make([]T, 0, pq.PageSize)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return 0, nil, err
		}
		data = append(data, item)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return total, data, nil
}
