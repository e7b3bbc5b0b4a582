// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package docstore is a key to JSON-document store with field-level
// operations. An Adapter provides the operations on top of a raw
// key/value Backend (BadgerDB or Redis).
//
// Every operation is atomic for its single key. Multi-step mutations
// that must not interleave with other writers go through Update, which
// runs a read-modify-write under the backend's optimistic concurrency
// control (a Badger transaction or a Redis WATCH).
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key, or a field inside a document, is absent.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable is returned when the backend cannot be reached. The
	// adapter never retries or hides it.
	ErrUnavailable = errors.New("document store unavailable")

	// ErrConflict is returned when an atomic update kept losing races with
	// concurrent writers and gave up.
	ErrConflict = errors.New("document update conflict")

	// ErrInvalidDocument is returned when a stored value or field does not
	// have the expected JSON shape.
	ErrInvalidDocument = errors.New("invalid document")
)

// maxConflictRetries bounds optimistic retries of a single Modify call.
const maxConflictRetries = 10

// Backend is the raw key/value layer an Adapter runs on. Values are
// opaque JSON bytes.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Load returns the value at key or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Store upserts the value at key, applying the backend's default TTL.
	Store(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Modify atomically replaces the value at key with fn(current). The
	// key's remaining TTL is preserved. Returns ErrNotFound when key is
	// absent and any error fn returns, unchanged.
	Modify(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error

	// Close releases the backend's resources.
	Close() error
}
