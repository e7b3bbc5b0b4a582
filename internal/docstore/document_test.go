// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package docstore

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseDocument(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"object", `{"items":[]}`, false},
		{"empty object", `{}`, false},
		{"array", `[1,2]`, true},
		{"null", `null`, true},
		{"garbage", `{"items":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDocument([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDocument(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestDocument_DecodeMissingField(t *testing.T) {
	t.Parallel()

	doc := Document{}
	var v []string
	if err := doc.Decode("items", &v); !errors.Is(err, ErrNotFound) {
		t.Errorf("Decode() error = %v, want ErrNotFound", err)
	}
}

func TestDocument_AppendArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial []int
		maxLen  int
		values  []any
		want    []int
	}{
		{"creates field", nil, 0, []any{1, 2}, []int{1, 2}},
		{"appends", []int{1}, 0, []any{2, 3}, []int{1, 2, 3}},
		{"trims oldest", []int{1, 2, 3}, 3, []any{4, 5}, []int{3, 4, 5}},
		{"under limit", []int{1}, 5, []any{2}, []int{1, 2}},
		{"no values", nil, 0, nil, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := Document{}
			if tt.initial != nil {
				if err := doc.Encode("a", tt.initial); err != nil {
					t.Fatal(err)
				}
			}
			if err := doc.AppendArray("a", tt.maxLen, tt.values...); err != nil {
				t.Fatalf("AppendArray() error = %v", err)
			}

			var got []int
			if err := doc.Decode("a", &got); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocument_AppendArrayWrongType(t *testing.T) {
	t.Parallel()

	doc := Document{}
	if err := doc.Encode("a", map[string]int{"x": 1}); err != nil {
		t.Fatal(err)
	}
	if err := doc.AppendArray("a", 0, 1); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("AppendArray() error = %v, want ErrInvalidDocument", err)
	}
}

func TestDocument_InsertMember(t *testing.T) {
	t.Parallel()

	doc := Document{}
	for _, id := range []string{"a", "b", "c"} {
		if err := doc.InsertMember("s", id, 0); err != nil {
			t.Fatal(err)
		}
	}

	members, err := doc.Members("s")
	if err != nil {
		t.Fatal(err)
	}
	want := MemberSet{"a": 1, "b": 2, "c": 3}
	if !reflect.DeepEqual(members, want) {
		t.Errorf("members = %v, want %v", members, want)
	}

	// Re-inserting keeps the original ordinal.
	if err := doc.InsertMember("s", "a", 0); err != nil {
		t.Fatal(err)
	}
	members, _ = doc.Members("s")
	if members["a"] != 1 || len(members) != 3 {
		t.Errorf("after re-insert members = %v", members)
	}
}

func TestDocument_InsertMemberEvictsOldest(t *testing.T) {
	t.Parallel()

	doc := Document{}
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		if err := doc.InsertMember("s", id, 5); err != nil {
			t.Fatal(err)
		}
	}

	members, err := doc.Members("s")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := members.IDs(), []string{"3", "4", "5", "6", "7"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestDocument_RemoveAndHasMember(t *testing.T) {
	t.Parallel()

	doc := Document{}
	_ = doc.InsertMember("s", "x", 0)

	ok, err := doc.HasMember("s", "x")
	if err != nil || !ok {
		t.Fatalf("HasMember(x) = %v, %v; want true", ok, err)
	}

	if err := doc.RemoveMember("s", "x"); err != nil {
		t.Fatal(err)
	}
	if err := doc.RemoveMember("s", "missing"); err != nil {
		t.Errorf("RemoveMember(missing) error = %v", err)
	}

	ok, _ = doc.HasMember("s", "x")
	if ok {
		t.Error("HasMember(x) = true after removal")
	}
	ok, _ = doc.HasMember("absent", "x")
	if ok {
		t.Error("HasMember on absent field = true")
	}
}

func TestMemberSet_IDsOrder(t *testing.T) {
	t.Parallel()

	s := MemberSet{"z": 3, "y": 1, "x": 2}
	if got, want := s.IDs(), []string{"y", "x", "z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}
