// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores documents in an embedded BadgerDB. The database
// handle is shared with other stores, so Close does not close it.
type BadgerBackend struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerBackend returns a backend over db. Values written by Store
// expire after ttl; zero disables expiry.
func NewBadgerBackend(db *badger.DB, ttl time.Duration) *BadgerBackend {
	return &BadgerBackend{db: db, ttl: ttl}
}

// Name implements Backend.
func (b *BadgerBackend) Name() string { return "badger" }

// Ping implements Backend.
func (b *BadgerBackend) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.db == nil || b.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

// Load implements Backend.
func (b *BadgerBackend) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger load %q: %w", key, err)
	}
	return value, nil
}

// Store implements Backend.
func (b *BadgerBackend) Store(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger store %q: %w", key, err)
	}
	return nil
}

// Remove implements Backend.
func (b *BadgerBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("badger remove %q: %w", key, err)
	}
	return nil
}

// Modify implements Backend. Transactions that lose a write conflict are
// retried from a fresh read.
func (b *BadgerBackend) Modify(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	k := []byte(key)

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := b.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(k)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}

			current, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			next, err := fn(current)
			if err != nil {
				return err
			}

			e := badger.NewEntry(k, next)
			e.ExpiresAt = item.ExpiresAt()
			return txn.SetEntry(e)
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, badger.ErrConflict):
			continue
		case errors.Is(err, ErrNotFound):
			return ErrNotFound
		default:
			var cbErr *callbackError
			if errors.As(err, &cbErr) {
				return err
			}
			return fmt.Errorf("badger modify %q: %w", key, err)
		}
	}
	return ErrConflict
}

// Close implements Backend. The shared database is closed by its owner.
func (b *BadgerBackend) Close() error { return nil }
