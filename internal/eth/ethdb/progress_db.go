package ethdb

import (
	"context"
	"database/sql"
	"sync"
)

// ProgressDb stores the last block whose events were fully handed to the
// engine, per chain.
type ProgressDb interface {
	GetProgress() (uint64, bool, error)
	SetProgress(ctx context.Context, blockNumber uint64) error
	// RewindTo lowers the stored progress to blockNumber when it is ahead.
	RewindTo(ctx context.Context, blockNumber uint64) error
}

func NewProgressDb(db *sql.DB, chainID uint64) ProgressDb {
	return &ProgressDbImpl{db: db, chainID: chainID}
}

type ProgressDbImpl struct {
	db      *sql.DB
	chainID uint64
	mu      sync.RWMutex
}

func (p *ProgressDbImpl) GetProgress() (uint64, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var blockNumber uint64
	err := p.db.QueryRow("select block_number from watcher_progress where chain_id = ?", p.chainID).Scan(&blockNumber)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return blockNumber, true, nil
}

func (p *ProgressDbImpl) SetProgress(ctx context.Context, blockNumber uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.db.ExecContext(ctx,
		"insert into watcher_progress (chain_id, block_number) values (?, ?) on conflict(chain_id) do update set block_number = excluded.block_number",
		p.chainID, blockNumber,
	)
	return err
}

func (p *ProgressDbImpl) RewindTo(ctx context.Context, blockNumber uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.db.ExecContext(ctx,
		"update watcher_progress set block_number = ? where chain_id = ? and block_number > ?",
		blockNumber, p.chainID, blockNumber,
	)
	return err
}
