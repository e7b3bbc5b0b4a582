// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package silo manages the per-session content buffer behind a feed.
//
// A silo is one document stored at "silo:<session_id>":
//
//	{"items":    [{"id": "7", "text": "..."}, ...],
//	 "includes": {"2": 1, "20": 2},
//	 "excludes": {"9": 1}}
//
// items is the ordered buffer whose front is the current feed. includes
// and excludes collect the session's likes and dislikes since the last
// replenishment; each maps an item id to its insertion ordinal so the
// oldest can be evicted when the set is full. An id is never in both.
package silo

import (
	"context"
	"errors"

	"github.com/tomtom215/witter/internal/config"
	"github.com/tomtom215/witter/internal/docstore"
	"github.com/tomtom215/witter/internal/models"
)

// AllItems asks GetItems for the whole buffer.
const AllItems = -1

const (
	keyPrefix = "silo:"

	fieldItems    = "items"
	fieldIncludes = "includes"
	fieldExcludes = "excludes"

	// maxTopUpAttempts bounds the random draws used to fill the buffer.
	maxTopUpAttempts = 3
)

var (
	// ErrNotFound is returned when the session has no silo.
	ErrNotFound = errors.New("silo not found")

	// ErrInvalidItemID is returned for an empty item id.
	ErrInvalidItemID = errors.New("invalid item id")
)

// Store is the document store a silo lives in. *docstore.Adapter
// satisfies it.
type Store interface {
	Set(ctx context.Context, key string, doc docstore.Document) error
	Get(ctx context.Context, key, field string, dst any) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn func(docstore.Document) error) error
}

// Ranker supplies item ids and resolves them to content.
// *ranking.Provider satisfies it.
type Ranker interface {
	Random(ctx context.Context, n int) ([]string, error)
	RankedBySeed(ctx context.Context, seeds []string, n int) ([]string, error)
	ResolveContent(ctx context.Context, ids []string) ([]models.Item, error)
}

// Config sizes a silo.
type Config struct {
	// Capacity is the maximum buffer length.
	Capacity int

	// ConsumedSlots is how many items at the front of the buffer one feed
	// request serves; replenishment discards them.
	ConsumedSlots int

	// Headroom is left free by ranked generation and filled at random.
	Headroom int

	// PreferenceCap bounds includes and excludes.
	PreferenceCap int
}

// DefaultConfig returns the standard silo sizing.
func DefaultConfig() Config {
	return Config{
		Capacity:      20,
		ConsumedSlots: 5,
		Headroom:      2,
		PreferenceCap: 5,
	}
}

// ConfigFrom converts application configuration.
func ConfigFrom(cfg *config.SiloConfig) Config {
	return Config{
		Capacity:      cfg.Capacity,
		ConsumedSlots: cfg.ConsumedSlots,
		Headroom:      cfg.Headroom,
		PreferenceCap: cfg.PreferenceCap,
	}
}

// Key returns the document key of a session's silo.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// snapshot is a decoded silo document.
type snapshot struct {
	Items    []models.Item      `json:"items"`
	Includes docstore.MemberSet `json:"includes"`
	Excludes docstore.MemberSet `json:"excludes"`
}
