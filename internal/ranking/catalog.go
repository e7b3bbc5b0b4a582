// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package ranking

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

//go:embed default_catalog.json
var defaultCatalog []byte

// Entry is one catalog item with its latent factor vector.
type Entry struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Factors []float64 `json:"factors"`
}

// Catalog is an immutable set of items indexed by id.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

type catalogFile struct {
	Items []Entry `json:"items"`
}

// ErrEmptyCatalog is returned when a catalog has no items.
var ErrEmptyCatalog = errors.New("catalog has no items")

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes {"items": [...]}. Ids must be unique and non-empty
// and every factor vector must have the same, non-zero dimension.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalog(f.Items)
}

// NewCatalog validates entries and builds the id index.
func NewCatalog(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	dim := len(entries[0].Factors)
	if dim == 0 {
		return nil, fmt.Errorf("item %q has no factors", entries[0].ID)
	}

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("item at position %d has no id", i)
		}
		if _, dup := index[e.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %q", e.ID)
		}
		if len(e.Factors) != dim {
			return nil, fmt.Errorf("item %q has %d factors, want %d", e.ID, len(e.Factors), dim)
		}
		index[e.ID] = i
	}

	return &Catalog{entries: entries, index: index}, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	i, ok := c.index[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}
