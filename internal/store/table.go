package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const keyPrefix = "stats:"

type EntityType string

// Table is the typed get/set/delete capability for one entity type.
// Values are stored as JSON under "stats:{entityType}:{id}".
type Table[T any] struct {
	entityType EntityType
}

func NewTable[T any](entityType EntityType) Table[T] {
	return Table[T]{entityType: entityType}
}

func (t Table[T]) EntityType() EntityType {
	return t.entityType
}

func (t Table[T]) prefix() string {
	return fmt.Sprintf("%s%s:", keyPrefix, t.entityType)
}

func (t Table[T]) key(id string) []byte {
	return []byte(t.prefix() + id)
}

// Get returns nil when no entity is stored under id.
func (t Table[T]) Get(tx Tx, id string) (*T, error) {
	raw, err := tx.Get(t.key(id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t.entityType, id, err)
	}

	var entity T
	if err := json.Unmarshal(raw, &entity); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", t.entityType, id, err)
	}
	return &entity, nil
}

func (t Table[T]) Exists(tx Tx, id string) (bool, error) {
	_, err := tx.Get(t.key(id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("get %s %s: %w", t.entityType, id, err)
	}
	return true, nil
}

func (t Table[T]) Set(tx Tx, id string, entity *T) error {
	value, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", t.entityType, id, err)
	}
	if err := tx.Set(t.key(id), value); err != nil {
		return fmt.Errorf("set %s %s: %w", t.entityType, id, err)
	}
	return nil
}

// DeleteUnsafe physically removes the row. Only sparse-ledger compaction uses it.
func (t Table[T]) DeleteUnsafe(tx Tx, id string) error {
	if err := tx.Delete(t.key(id)); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.entityType, id, err)
	}
	return nil
}

// Scan visits every entity whose id starts with idPrefix, in key order.
func (t Table[T]) Scan(tx Tx, idPrefix string, fn func(id string, entity *T) error) error {
	prefix := t.prefix()
	return tx.Scan([]byte(prefix+idPrefix), func(key, value []byte) error {
		var entity T
		if err := json.Unmarshal(value, &entity); err != nil {
			return fmt.Errorf("decode %s %s: %w", t.entityType, key, err)
		}
		return fn(strings.TrimPrefix(string(key), prefix), &entity)
	})
}

// Key joins id parts with the separator used across all tables.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
