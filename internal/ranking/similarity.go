// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package ranking

import (
	"math"
	"sort"
)

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankNeighbors orders every other catalog item by similarity to seed,
// most similar first. Ties break on id so the order is stable.
func (c *Catalog) rankNeighbors(seed string) []string {
	source, ok := c.Lookup(seed)
	if !ok {
		return nil
	}

	type scored struct {
		id    string
		score float64
	}
	candidates := make([]scored, 0, len(c.entries)-1)
	for _, e := range c.entries {
		if e.ID == seed {
			continue
		}
		candidates = append(candidates, scored{id: e.ID, score: cosineSimilarity(source.Factors, e.Factors)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})

	ids := make([]string, len(candidates))
	for i, s := range candidates {
		ids[i] = s.id
	}
	return ids
}
