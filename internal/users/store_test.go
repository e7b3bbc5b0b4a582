// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package users

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/witter/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestStore_CreateAndFind(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	byName, err := s.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername() error = %v", err)
	}
	if byName.Email != "alice@example.com" || byName.PasswordHash != "hash" {
		t.Errorf("FindByUsername() = %+v", byName)
	}

	byEmail, err := s.FindByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.Username != "alice" {
		t.Errorf("FindByEmail().Username = %q", byEmail.Username)
	}
}

func TestStore_FindByEmailOrUsername(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	_ = s.Create(ctx, &models.User{Username: "bob", Email: "bob@example.com"})

	tests := []struct {
		identity string
		wantErr  error
	}{
		{"bob", nil},
		{"bob@example.com", nil},
		{"carol", ErrNotFound},
		{"carol@example.com", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			u, err := s.FindByEmailOrUsername(ctx, tt.identity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && u.Username != "bob" {
				t.Errorf("Username = %q, want bob", u.Username)
			}
		})
	}
}

func TestStore_Uniqueness(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Create(ctx, &models.User{Username: "dave", Email: "dave@example.com"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		user models.User
		want error
	}{
		{"same email", models.User{Username: "dave2", Email: "dave@example.com"}, ErrEmailTaken},
		{"email case", models.User{Username: "dave3", Email: "Dave@Example.com"}, ErrEmailTaken},
		{"same username", models.User{Username: "dave", Email: "other@example.com"}, ErrUsernameTaken},
		{"username case", models.User{Username: "DAVE", Email: "other@example.com"}, ErrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if err := s.Create(ctx, &u); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, &models.User{Username: "eve", Email: "eve@example.com"})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrEmailTaken) && !errors.Is(err, ErrUsernameTaken) {
				t.Errorf("Create() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("%d concurrent registrations succeeded, want 1", created)
	}
}
