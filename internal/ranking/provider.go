// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package ranking picks content for a feed. It serves random draws from
// the catalog and nearest-neighbour recommendations seeded by the items a
// session liked, using cosine similarity of item latent factors.
package ranking

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tomtom215/witter/internal/cache"
	"github.com/tomtom215/witter/internal/config"
	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
	"github.com/tomtom215/witter/internal/models"
)

// exploratorySeeds is how many liked items a multi-seed request samples.
const exploratorySeeds = 2

// Provider serves item ids from a Catalog. It is safe for concurrent use.
type Provider struct {
	catalog   *Catalog
	neighbors *cache.LRU[string, []string]

	// rng is not safe for concurrent use
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewProvider returns a provider over catalog. A zero seed seeds from the
// clock. cacheSize bounds the number of memoized neighbour lists.
func NewProvider(catalog *Catalog, seed uint64, cacheSize int) *Provider {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	metrics.RankingCatalogSize.Set(float64(catalog.Len()))

	return &Provider{
		catalog:   catalog,
		neighbors: cache.NewLRU[string, []string](cacheSize),
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // feed shuffling, not security
	}
}

// Load builds a provider from configuration, reading the catalog file
// when one is configured.
func Load(cfg *config.RankingConfig) (*Provider, error) {
	var (
		catalog *Catalog
		err     error
	)
	if cfg.CatalogPath != "" {
		catalog, err = LoadCatalog(cfg.CatalogPath)
	} else {
		catalog, err = DefaultCatalog()
	}
	if err != nil {
		return nil, err
	}

	logging.Info().
		Int("items", catalog.Len()).
		Str("path", cfg.CatalogPath).
		Msg("Content catalog loaded")

	return NewProvider(catalog, cfg.Seed, cfg.NeighborCacheSize), nil
}

// Catalog returns the provider's catalog.
func (p *Provider) Catalog() *Catalog {
	return p.catalog
}

// Random returns up to n distinct catalog ids in random order.
func (p *Provider) Random(ctx context.Context, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.RankingRequests.WithLabelValues("random").Inc()

	if n <= 0 {
		return []string{}, nil
	}
	size := p.catalog.Len()
	if n > size {
		n = size
	}

	// Partial Fisher-Yates over the catalog positions.
	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}

	p.rngMu.Lock()
	for i := 0; i < n; i++ {
		j := i + p.rng.IntN(size-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	p.rngMu.Unlock()

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = p.catalog.entries[perm[i]].ID
	}
	return ids, nil
}

// RankedBySeed recommends up to n ids similar to seeds. Seed ids missing
// from the catalog are ignored.
//
// With one known seed the result is its n nearest neighbours, most
// similar first. With more, two seeds are sampled, the n nearest of each
// are merged without duplicates or seeds, and n are drawn at random from
// the merge. With no known seeds it falls back to Random.
func (p *Provider) RankedBySeed(ctx context.Context, seeds []string, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := make([]string, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		if _, dup := seen[s]; dup || !p.catalog.Has(s) {
			continue
		}
		seen[s] = struct{}{}
		known = append(known, s)
	}

	switch {
	case len(known) == 0:
		return p.Random(ctx, n)
	case n <= 0:
		return []string{}, nil
	case len(known) == 1:
		metrics.RankingRequests.WithLabelValues("nearest").Inc()
		return p.nearest(known[0], n), nil
	default:
		metrics.RankingRequests.WithLabelValues("exploratory").Inc()
		return p.exploratory(known, seen, n), nil
	}
}

// ResolveContent maps ids to items, keeping the first occurrence of each
// id and skipping ids the catalog does not know.
func (p *Provider) ResolveContent(ctx context.Context, ids []string) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		e, ok := p.catalog.Lookup(id)
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, models.Item{ID: e.ID, Text: e.Text})
	}
	return items, nil
}

func (p *Provider) nearest(seed string, n int) []string {
	ranked := p.neighborsOf(seed)
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	copy(out, ranked[:n])
	return out
}

func (p *Provider) exploratory(known []string, exclude map[string]struct{}, n int) []string {
	p.rngMu.Lock()
	sampled := make([]string, len(known))
	copy(sampled, known)
	p.rng.Shuffle(len(sampled), func(i, j int) { sampled[i], sampled[j] = sampled[j], sampled[i] })
	p.rngMu.Unlock()
	sampled = sampled[:exploratorySeeds]

	merged := make([]string, 0, exploratorySeeds*n)
	taken := make(map[string]struct{}, exploratorySeeds*n)
	for _, seed := range sampled {
		for _, id := range p.nearest(seed, n) {
			if _, skip := exclude[id]; skip {
				continue
			}
			if _, dup := taken[id]; dup {
				continue
			}
			taken[id] = struct{}{}
			merged = append(merged, id)
		}
	}

	p.rngMu.Lock()
	p.rng.Shuffle(len(merged), func(i, j int) { merged[i], merged[j] = merged[j], merged[i] })
	p.rngMu.Unlock()

	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}

// neighborsOf returns the memoized similarity ranking for seed. Callers
// must not modify the returned slice.
func (p *Provider) neighborsOf(seed string) []string {
	if ranked, ok := p.neighbors.Get(seed); ok {
		metrics.RankingNeighborCache.WithLabelValues("hit").Inc()
		return ranked
	}
	metrics.RankingNeighborCache.WithLabelValues("miss").Inc()

	ranked := p.catalog.rankNeighbors(seed)
	p.neighbors.Add(seed, ranked)
	return ranked
}
