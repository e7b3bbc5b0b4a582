// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package cache provides small in-process data structures used to memoize
// hot lookups.
package cache

import "sync"

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}

// LRU is a thread-safe least recently used cache with O(1) Get, Add and
// eviction. A hashmap indexes a doubly-linked list whose head side holds
// the most recently used entry.
type LRU[K comparable, V any] struct {
	mu sync.Mutex

	capacity int
	items    map[K]*lruEntry[K, V]

	// sentinels: head.next is the most recent, tail.prev the least recent
	head *lruEntry[K, V]
	tail *lruEntry[K, V]

	hits   int64
	misses int64
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 256
	}

	c := &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*lruEntry[K, V], capacity),
		head:     &lruEntry[K, V]{},
		tail:     &lruEntry[K, V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.unlink(entry)
		c.pushFront(entry)
		c.hits++
		return entry.value, true
	}

	c.misses++
	var zero V
	return zero, false
}

// Add inserts or replaces key, evicting the least recently used entry
// when the cache is full.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		entry.value = value
		c.unlink(entry)
		c.pushFront(entry)
		return
	}

	entry := &lruEntry[K, V]{key: key, value: value}
	c.pushFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		c.unlink(oldest)
		delete(c.items, oldest.key)
	}
}

// Remove deletes key. Returns true if it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(entry)
	delete(c.items, key)
	return true
}

// Purge drops every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*lruEntry[K, V], c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit/miss counters and the current size.
func (c *LRU[K, V]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// must be called with mu held
func (c *LRU[K, V]) pushFront(entry *lruEntry[K, V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

// must be called with mu held
func (c *LRU[K, V]) unlink(entry *lruEntry[K, V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}
