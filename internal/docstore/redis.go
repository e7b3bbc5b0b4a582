// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration

	// TTL applies to values written by Store. Zero disables expiry.
	TTL time.Duration
}

// RedisBackend stores each document as a JSON string value.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend returns a backend connected lazily to opts.Addr.
func NewRedisBackend(opts RedisOptions) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	return &RedisBackend{client: client, ttl: opts.TTL}
}

// Name implements Backend.
func (r *RedisBackend) Name() string { return "redis" }

// Ping implements Backend.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Load implements Backend.
func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

// Store implements Backend.
func (r *RedisBackend) Store(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Remove implements Backend.
func (r *RedisBackend) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Modify implements Backend with WATCH/MULTI/EXEC. A transaction aborted
// by a concurrent write is retried from a fresh read.
func (r *RedisBackend) Modify(ctx context.Context, key string, fn func([]byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrNotFound):
			return ErrNotFound
		default:
			var cbErr *callbackError
			if errors.As(err, &cbErr) {
				return err
			}
			return fmt.Errorf("redis modify %q: %w", key, err)
		}
	}
	return ErrConflict
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
