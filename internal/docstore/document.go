// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package docstore

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// Document is a JSON object addressed by top-level field. Field values
// stay encoded until a caller decodes them.
type Document map[string]json.RawMessage

// MemberSet is a bounded set stored as {id: ordinal}. The ordinal records
// insertion order so the oldest member can be evicted.
type MemberSet map[string]int64

// IDs returns the members ordered oldest first.
func (s MemberSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s[ids[i]] != s[ids[j]] {
			return s[ids[i]] < s[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ParseDocument decodes raw bytes into a Document.
func ParseDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}
	return doc, nil
}

// Bytes encodes the document.
func (d Document) Bytes() ([]byte, error) {
	return json.Marshal(d)
}

// Decode unmarshals field into dst. Returns ErrNotFound if the field is absent.
func (d Document) Decode(field string, dst any) error {
	raw, ok := d[field]
	if !ok {
		return fmt.Errorf("%w: field %q", ErrNotFound, field)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrInvalidDocument, field, err)
	}
	return nil
}

// Encode marshals v into field, replacing any previous value.
func (d Document) Encode(field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode field %q: %w", field, err)
	}
	d[field] = raw
	return nil
}

// AppendArray appends values to the array at field, creating it when
// absent. With maxLen > 0 the oldest entries are dropped so at most
// maxLen remain.
func (d Document) AppendArray(field string, maxLen int, values ...any) error {
	var arr []json.RawMessage
	if _, ok := d[field]; ok {
		if err := d.Decode(field, &arr); err != nil {
			return err
		}
	}

	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode array value for %q: %w", field, err)
		}
		arr = append(arr, raw)
	}

	if maxLen > 0 && len(arr) > maxLen {
		arr = arr[len(arr)-maxLen:]
	}
	if arr == nil {
		arr = []json.RawMessage{}
	}
	return d.Encode(field, arr)
}

// Members decodes the member set at field. An absent field is an empty set.
func (d Document) Members(field string) (MemberSet, error) {
	members := MemberSet{}
	if _, ok := d[field]; !ok {
		return members, nil
	}
	if err := d.Decode(field, &members); err != nil {
		return nil, err
	}
	if members == nil {
		members = MemberSet{}
	}
	return members, nil
}

// InsertMember adds id to the member set at field. Re-inserting an
// existing member is a no-op. With maxLen > 0 the oldest members are
// evicted so the set never exceeds maxLen.
func (d Document) InsertMember(field, id string, maxLen int) error {
	members, err := d.Members(field)
	if err != nil {
		return err
	}
	if _, ok := members[id]; ok {
		return nil
	}

	if maxLen > 0 {
		ordered := members.IDs()
		for len(ordered) >= maxLen {
			delete(members, ordered[0])
			ordered = ordered[1:]
		}
	}

	var next int64
	for _, ord := range members {
		if ord > next {
			next = ord
		}
	}
	members[id] = next + 1

	return d.Encode(field, members)
}

// RemoveMember deletes id from the member set at field. Removing an
// absent member is a no-op.
func (d Document) RemoveMember(field, id string) error {
	members, err := d.Members(field)
	if err != nil {
		return err
	}
	if _, ok := members[id]; !ok {
		return nil
	}
	delete(members, id)
	return d.Encode(field, members)
}

// HasMember reports whether id is in the member set at field.
func (d Document) HasMember(field, id string) (bool, error) {
	members, err := d.Members(field)
	if err != nil {
		return false, err
	}
	_, ok := members[id]
	return ok, nil
}
