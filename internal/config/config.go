// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package config loads Witter's layered configuration (defaults, YAML
// file, environment) with koanf and validates it.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Store    StoreConfig    `koanf:"store"`
	Cache    CacheConfig    `koanf:"cache"`
	Silo     SiloConfig     `koanf:"silo"`
	Ranking  RankingConfig  `koanf:"ranking"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Environment     string        `koanf:"environment"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
}

// SecurityConfig holds token signing, password hashing, rate limiting and CORS settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	BcryptCost        int           `koanf:"bcrypt_cost"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// StoreConfig configures the embedded BadgerDB that holds user accounts
// (and silos when the cache backend is badger).
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
	GCRatio    float64       `koanf:"gc_ratio"`

	SyncWrites  bool `koanf:"sync_writes"`
	Compression bool `koanf:"compression"`
}

// CacheConfig selects and configures the silo document backend.
type CacheConfig struct {
	// Backend is "badger" or "redis".
	Backend       string        `koanf:"backend"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	DialTimeout   time.Duration `koanf:"dial_timeout"`
	SiloTTL       time.Duration `koanf:"silo_ttl"`

	// Circuit breaker around backend calls.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// SiloConfig holds the replenishment policy constants.
type SiloConfig struct {
	Capacity      int  `koanf:"capacity"`
	ConsumedSlots int  `koanf:"consumed_slots"`
	Headroom      int  `koanf:"headroom"`
	PreferenceCap int  `koanf:"preference_cap"`
	FeedCount     int  `koanf:"feed_count"`
	PrimeOnLogin  bool `koanf:"prime_on_login"`
}

// RankingConfig configures the content catalog and ranking provider.
type RankingConfig struct {
	// CatalogPath is a JSON catalog file; empty selects the embedded catalog.
	CatalogPath       string `koanf:"catalog_path"`
	Seed              uint64 `koanf:"seed"`
	NeighborCacheSize int    `koanf:"neighbor_cache_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the service runs with ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ListenAddr returns host:port for the HTTP listener.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
