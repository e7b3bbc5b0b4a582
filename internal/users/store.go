// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package users persists accounts in BadgerDB. Each account is stored
// under "user:<username>" with a "user_email:<email>" index entry, both
// written in one transaction so uniqueness holds under concurrency.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/witter/internal/models"
)

const (
	prefixUser  = "user:"
	prefixEmail = "user_email:"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already registered")
)

// Store reads and writes accounts.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// NewStore returns a store over db.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func userKey(username string) []byte {
	return []byte(prefixUser + strings.ToLower(username))
}

func emailKey(email string) []byte {
	return []byte(prefixEmail + strings.ToLower(email))
}

// Create registers u. Email and username are compared case-insensitively.
// CreatedAt is set when zero.
func (s *Store) Create(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(u.Email)); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if _, err := txn.Get(userKey(u.Username)); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(userKey(u.Username), raw); err != nil {
			return err
		}
		return txn.Set(emailKey(u.Email), []byte(strings.ToLower(u.Username)))
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		return err
	case errors.Is(err, badger.ErrConflict):
		// A concurrent registration touched the same keys; report it as
		// taken rather than retrying into a guaranteed collision.
		return ErrUsernameTaken
	default:
		return fmt.Errorf("create user: %w", err)
	}
}

// FindByUsername returns the account with username.
func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var u *models.User
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		u, err = getUser(txn, userKey(username))
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail returns the account registered with email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var u *models.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup email: %w", err)
		}
		username, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read email index: %w", err)
		}
		u, err = getUser(txn, userKey(string(username)))
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmailOrUsername resolves a login identity: values containing '@'
// are looked up as emails, everything else as usernames.
func (s *Store) FindByEmailOrUsername(ctx context.Context, identity string) (*models.User, error) {
	if strings.Contains(identity, "@") {
		return s.FindByEmail(ctx, identity)
	}
	return s.FindByUsername(ctx, identity)
}

func getUser(txn *badger.Txn, key []byte) (*models.User, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	var u models.User
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &u)
	})
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
