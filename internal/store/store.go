// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package store opens the embedded BadgerDB shared by the user store and
// the badger silo backend, and keeps its value log compacted.
package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/witter/internal/config"
	"github.com/tomtom215/witter/internal/logging"
)

// Open opens (or creates) the database described by cfg. With
// cfg.InMemory the database lives only in memory and Path is ignored.
func Open(cfg *config.StoreConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Bool("compression", cfg.Compression).
		Msg("Store opened")
	return db, nil
}

// OpenInMemory opens a throwaway in-memory database.
func OpenInMemory() (*badger.DB, error) {
	return Open(&config.StoreConfig{InMemory: true})
}
