// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package silo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/witter/internal/docstore"
	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
	"github.com/tomtom215/witter/internal/models"
)

// Engine implements silo operations over a Store and a Ranker. It is safe
// for concurrent use; every mutation of one silo is a single atomic
// document update.
type Engine struct {
	store  Store
	ranker Ranker
	cfg    Config
}

// NewEngine returns an engine. Zero fields in cfg take their defaults.
func NewEngine(store Store, ranker Ranker, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.ConsumedSlots < 0 {
		cfg.ConsumedSlots = def.ConsumedSlots
	}
	if cfg.Headroom < 0 {
		cfg.Headroom = def.Headroom
	}
	if cfg.PreferenceCap <= 0 {
		cfg.PreferenceCap = def.PreferenceCap
	}
	return &Engine{store: store, ranker: ranker, cfg: cfg}
}

// Config returns the engine's effective sizing.
func (e *Engine) Config() Config {
	return e.cfg
}

// CreateSilo writes an empty silo for sessionID, replacing any existing one.
func (e *Engine) CreateSilo(ctx context.Context, sessionID string) (err error) {
	defer func() { metrics.RecordSiloOperation("create", err) }()

	doc := docstore.Document{}
	if err := doc.Encode(fieldItems, []models.Item{}); err != nil {
		return err
	}
	if err := doc.Encode(fieldIncludes, docstore.MemberSet{}); err != nil {
		return err
	}
	if err := doc.Encode(fieldExcludes, docstore.MemberSet{}); err != nil {
		return err
	}

	if err := e.store.Set(ctx, Key(sessionID), doc); err != nil {
		return fmt.Errorf("create silo: %w", err)
	}
	return nil
}

// DestroySilo deletes the silo. Destroying an absent silo is not an error.
func (e *Engine) DestroySilo(ctx context.Context, sessionID string) (err error) {
	defer func() { metrics.RecordSiloOperation("destroy", err) }()

	if err := e.store.Delete(ctx, Key(sessionID)); err != nil {
		return fmt.Errorf("destroy silo: %w", err)
	}
	return nil
}

// IncludeItem records a like: itemID leaves excludes and joins includes.
func (e *Engine) IncludeItem(ctx context.Context, sessionID, itemID string) (err error) {
	defer func() { metrics.RecordSiloOperation("include", err) }()
	return e.setPreference(ctx, sessionID, itemID, fieldIncludes, fieldExcludes)
}

// ExcludeItem records a dislike: itemID leaves includes and joins excludes.
func (e *Engine) ExcludeItem(ctx context.Context, sessionID, itemID string) (err error) {
	defer func() { metrics.RecordSiloOperation("exclude", err) }()
	return e.setPreference(ctx, sessionID, itemID, fieldExcludes, fieldIncludes)
}

func (e *Engine) setPreference(ctx context.Context, sessionID, itemID, into, from string) error {
	if itemID == "" {
		return ErrInvalidItemID
	}

	err := e.store.Update(ctx, Key(sessionID), func(doc docstore.Document) error {
		if err := doc.RemoveMember(from, itemID); err != nil {
			return err
		}
		return doc.InsertMember(into, itemID, e.cfg.PreferenceCap)
	})
	if err != nil {
		return mapStoreError("update "+into, err)
	}
	return nil
}

// GetItems returns the first count buffered items, or all of them when
// count is negative. An empty buffer yields an empty, non-nil slice.
func (e *Engine) GetItems(ctx context.Context, sessionID string, count int) (items []models.Item, err error) {
	defer func() { metrics.RecordSiloOperation("get_items", err) }()

	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items = snap.Items
	if count >= 0 && count < len(items) {
		items = items[:count]
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

// Repopulate replenishes the buffer. The served front of the buffer is
// dropped, excluded items are removed, and new items are generated from
// the session's likes (or at random without any), then topped up at
// random to capacity. The preferences consumed by this cycle are cleared
// in the same write; likes and dislikes recorded while it ran survive.
func (e *Engine) Repopulate(ctx context.Context, sessionID string) (err error) {
	defer func() { metrics.RecordSiloOperation("repopulate", err) }()
	start := time.Now()

	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}

	var filtered, ranked, random, toppedUp int

	consumed := min(e.cfg.ConsumedSlots, len(snap.Items))
	buffer := make([]models.Item, 0, e.cfg.Capacity)
	inBuffer := make(map[string]struct{}, e.cfg.Capacity)

	for _, it := range snap.Items[consumed:] {
		if _, excluded := snap.Excludes[it.ID]; excluded {
			filtered++
			continue
		}
		if _, dup := inBuffer[it.ID]; dup {
			continue
		}
		inBuffer[it.ID] = struct{}{}
		buffer = append(buffer, it)
	}
	if len(buffer) > e.cfg.Capacity {
		buffer = buffer[:e.cfg.Capacity]
	}

	needed := max(e.cfg.Capacity-len(buffer)-e.cfg.Headroom, 0)
	if needed > 0 {
		var ids []string
		if len(snap.Includes) == 0 {
			ids, err = e.ranker.Random(ctx, needed)
		} else {
			ids, err = e.ranker.RankedBySeed(ctx, snap.Includes.IDs(), needed)
		}
		if err != nil {
			return fmt.Errorf("generate items: %w", err)
		}

		fresh, dropped, err := e.admit(ctx, ids, snap.Excludes, inBuffer)
		if err != nil {
			return err
		}
		filtered += dropped
		buffer = append(buffer, fresh...)
		if len(snap.Includes) == 0 {
			random += len(fresh)
		} else {
			ranked += len(fresh)
		}
	}

	for attempt := 0; attempt < maxTopUpAttempts && len(buffer) < e.cfg.Capacity; attempt++ {
		missing := e.cfg.Capacity - len(buffer)

		// Over-draw so collisions with the buffer and excludes still leave
		// enough new ids; the provider caps the draw at catalog size.
		ids, err := e.ranker.Random(ctx, missing+len(inBuffer)+len(snap.Excludes))
		if err != nil {
			return fmt.Errorf("top up items: %w", err)
		}

		fresh, _, err := e.admit(ctx, ids, snap.Excludes, inBuffer)
		if err != nil {
			return err
		}
		if len(fresh) == 0 {
			break // catalog exhausted
		}
		if len(fresh) > missing {
			for _, it := range fresh[missing:] {
				delete(inBuffer, it.ID)
			}
			fresh = fresh[:missing]
		}
		buffer = append(buffer, fresh...)
		toppedUp += len(fresh)
	}

	err = e.store.Update(ctx, Key(sessionID), func(doc docstore.Document) error {
		// Dislikes recorded since the snapshot still apply to this buffer.
		current, err := doc.Members(fieldExcludes)
		if err != nil {
			return err
		}
		items := buffer
		if !sameMembers(current, snap.Excludes) {
			items = make([]models.Item, 0, len(buffer))
			for _, it := range buffer {
				if _, excluded := current[it.ID]; !excluded {
					items = append(items, it)
				}
			}
		}

		if err := doc.Encode(fieldItems, items); err != nil {
			return err
		}
		for id := range snap.Includes {
			if err := doc.RemoveMember(fieldIncludes, id); err != nil {
				return err
			}
		}
		for id := range snap.Excludes {
			if err := doc.RemoveMember(fieldExcludes, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapStoreError("write silo", err)
	}

	metrics.RecordRepopulate(time.Since(start), ranked, random, toppedUp, filtered, len(buffer))
	logging.Ctx(ctx).Debug().
		Int("buffer", len(buffer)).
		Int("ranked", ranked).
		Int("random", random).
		Int("topped_up", toppedUp).
		Int("filtered", filtered).
		Int("seeds", len(snap.Includes)).
		Msg("Silo repopulated")
	return nil
}

// admit resolves the ids that are neither excluded nor already buffered
// and marks them buffered. It returns the items and how many ids were
// rejected as excluded.
func (e *Engine) admit(ctx context.Context, ids []string, excludes docstore.MemberSet, inBuffer map[string]struct{}) ([]models.Item, int, error) {
	keep := make([]string, 0, len(ids))
	dropped := 0
	for _, id := range ids {
		if _, excluded := excludes[id]; excluded {
			dropped++
			continue
		}
		if _, dup := inBuffer[id]; dup {
			continue
		}
		inBuffer[id] = struct{}{}
		keep = append(keep, id)
	}

	items, err := e.ranker.ResolveContent(ctx, keep)
	if err != nil {
		for _, id := range keep {
			delete(inBuffer, id)
		}
		return nil, 0, fmt.Errorf("resolve content: %w", err)
	}

	if len(items) != len(keep) {
		// Unresolvable ids are not buffered.
		resolved := make(map[string]struct{}, len(items))
		for _, it := range items {
			resolved[it.ID] = struct{}{}
		}
		for _, id := range keep {
			if _, ok := resolved[id]; !ok {
				delete(inBuffer, id)
			}
		}
	}
	return items, dropped, nil
}

func (e *Engine) load(ctx context.Context, sessionID string) (*snapshot, error) {
	var snap snapshot
	if err := e.store.Get(ctx, Key(sessionID), "", &snap); err != nil {
		return nil, mapStoreError("read silo", err)
	}
	return &snap, nil
}

func sameMembers(a, b docstore.MemberSet) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

func mapStoreError(op string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
