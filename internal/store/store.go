package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = errors.New("key not found")

// Tx is a read-your-writes key/value view scoped to one unit of work.
type Tx interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(prefix []byte, fn func(key, value []byte) error) error
}

type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

type BadgerStore struct {
	db *badger.DB
}

// Update runs fn inside a single read-write transaction. Nothing is committed
// if fn fails or ctx is done by the time fn returns.
func (s *BadgerStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := fn(&badgerTx{txn: txn}); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context done before commit: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, readOnly: true})
	})
}

type badgerTx struct {
	txn      *badger.Txn
	readOnly bool
}

func (t *badgerTx) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTx) Set(key, value []byte) error {
	if t.readOnly {
		return errors.New("set called on read-only transaction")
	}
	return t.txn.Set(key, value)
}

func (t *badgerTx) Delete(key []byte) error {
	if t.readOnly {
		return errors.New("delete called on read-only transaction")
	}
	return t.txn.Delete(key)
}

func (t *badgerTx) Scan(prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}
