// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package models holds the data types shared between the silo engine, the
// ranking provider, the user store and the HTTP layer.
package models

// Item is one unit of displayable content in a feed.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ItemIDs returns the ids of items in order.
func ItemIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
