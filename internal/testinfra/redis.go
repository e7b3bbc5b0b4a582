// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

//go:build integration

package testinfra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// DefaultRedisImage is the Redis image used by integration tests.
const DefaultRedisImage = "redis:7-alpine"

// RedisContainer is a running Redis server.
type RedisContainer struct {
	*tcredis.RedisContainer

	// Addr is the host:port clients connect to.
	Addr string
}

// NewRedisContainer starts a Redis container and waits until it accepts
// connections.
func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	container, err := tcredis.Run(ctx, DefaultRedisImage)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("redis connection string: %w", err)
	}

	opts, err := redis.ParseURL(uri)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("parse redis url %q: %w", uri, err)
	}

	return &RedisContainer{RedisContainer: container, Addr: opts.Addr}, nil
}
