package ethdb

import (
	"database/sql"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// BlockHashDb remembers the canonical hash of every block the watcher has
// consumed on one chain so reorgs can be spotted on the next pass.
type BlockHashDb interface {
	GetHash(blockNumber uint64) (common.Hash, bool)
	SetHash(blockNumber uint64, hash common.Hash) error
	RevertFromBlock(fromBlock uint64) error
}

func NewBlockHashDb(db *sql.DB, chainID uint64) BlockHashDb {
	return &BlockHashDbImpl{db: db, chainID: chainID}
}

type BlockHashDbImpl struct {
	mu      sync.RWMutex
	db      *sql.DB
	chainID uint64
}

func (b *BlockHashDbImpl) GetHash(blockNumber uint64) (common.Hash, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := b.db.QueryRow("select hash from block_hash where chain_id = ? and block_number = ?", b.chainID, blockNumber)
	var hash string
	err := result.Scan(&hash)
	if err != nil {
		return common.Hash{}, false
	}
	return common.HexToHash(hash), true
}

func (b *BlockHashDbImpl) SetHash(blockNumber uint64, hash common.Hash) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.db.Exec(
		"insert into block_hash (chain_id, block_number, hash) values (?, ?, ?) on conflict(chain_id, block_number) do update set hash = excluded.hash",
		b.chainID, blockNumber, hash.Hex(),
	)
	return err
}

func (b *BlockHashDbImpl) RevertFromBlock(fromBlock uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.db.Exec("delete from block_hash where chain_id = ? and block_number >= ?", b.chainID, fromBlock)
	return err
}
