// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/witter/config.yaml",
	"/etc/witter/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the configuration applied before file and env layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			Environment:     "development",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  20 * time.Second,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			BcryptCost:        12,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Store: StoreConfig{
			Path:       "/data/witter",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
			GCRatio:    0.5,

			SyncWrites:  true,
			Compression: true,
		},
		Cache: CacheConfig{
			Backend:            "badger",
			RedisAddr:          "localhost:6379",
			RedisDB:            0,
			DialTimeout:        5 * time.Second,
			SiloTTL:            24 * time.Hour,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Silo: SiloConfig{
			Capacity:      20,
			ConsumedSlots: 5,
			Headroom:      2,
			PreferenceCap: 5,
			FeedCount:     5,
			PrimeOnLogin:  true,
		},
		Ranking: RankingConfig{
			CatalogPath:       "",
			Seed:              0,
			NeighborCacheSize: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with precedence ENV > File > Defaults
// and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"environment":      "server.environment",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"request_timeout":  "server.request_timeout",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"secret_key":          "security.jwt_secret",
	"bcrypt_cost":         "security.bcrypt_cost",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Embedded store
	"badger_path":      "store.path",
	"badger_in_memory": "store.in_memory",
	"badger_gc_period": "store.gc_interval",
	"badger_sync":      "store.sync_writes",
	"badger_compress":  "store.compression",

	// Silo cache backend
	"cache_backend":        "cache.backend",
	"redis_addr":           "cache.redis_addr",
	"redis_password":       "cache.redis_password",
	"redis_db":             "cache.redis_db",
	"silo_ttl":             "cache.silo_ttl",
	"cache_breaker_limit":  "cache.breaker_max_failures",
	"cache_breaker_period": "cache.breaker_timeout",

	// Silo policy
	"silo_capacity":       "silo.capacity",
	"silo_consumed_slots": "silo.consumed_slots",
	"silo_headroom":       "silo.headroom",
	"silo_preference_cap": "silo.preference_cap",
	"silo_feed_count":     "silo.feed_count",
	"silo_prime_on_login": "silo.prime_on_login",

	// Ranking
	"catalog_path":        "ranking.catalog_path",
	"ranking_seed":        "ranking.seed",
	"neighbor_cache_size": "ranking.neighbor_cache_size",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - SECRET_KEY -> security.jwt_secret
//   - REDIS_ADDR -> cache.redis_addr
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
