// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Silo.Capacity != 20 {
		t.Errorf("Silo.Capacity = %d, want 20", cfg.Silo.Capacity)
	}
	if cfg.Silo.ConsumedSlots != 5 {
		t.Errorf("Silo.ConsumedSlots = %d, want 5", cfg.Silo.ConsumedSlots)
	}
	if cfg.Silo.Headroom != 2 {
		t.Errorf("Silo.Headroom = %d, want 2", cfg.Silo.Headroom)
	}
	if cfg.Silo.PreferenceCap != 5 {
		t.Errorf("Silo.PreferenceCap = %d, want 5", cfg.Silo.PreferenceCap)
	}
	if cfg.Cache.Backend != "badger" {
		t.Errorf("Cache.Backend = %q, want badger", cfg.Cache.Backend)
	}
	if cfg.Cache.SiloTTL != 24*time.Hour {
		t.Errorf("Cache.SiloTTL = %v, want 24h", cfg.Cache.SiloTTL)
	}
	if cfg.Security.JWTSecret != "" {
		t.Error("Security.JWTSecret should have no default")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"SECRET_KEY", "security.jwt_secret"},
		{"REDIS_ADDR", "cache.redis_addr"},
		{"CACHE_BACKEND", "cache.backend"},
		{"SILO_CAPACITY", "silo.capacity"},
		{"CATALOG_PATH", "ranking.catalog_path"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("CONFIG_PATH takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom.yaml")
		if err := os.WriteFile(customPath, []byte("server:\n  port: 1\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Setenv(ConfigPathEnvVar, customPath)

		if got := findConfigFile(); got != customPath {
			t.Errorf("findConfigFile() = %q, want %q", got, customPath)
		}
	})

	t.Run("CONFIG_PATH with missing file falls back", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(tmpDir, "missing.yaml"))

		if got := findConfigFile(); got != "" {
			t.Errorf("findConfigFile() = %q, want empty string", got)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("SECRET_KEY", testSecret)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SILO_CAPACITY", "30")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Security.JWTSecret != testSecret {
		t.Errorf("Security.JWTSecret = %q, want value from SECRET_KEY", cfg.Security.JWTSecret)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Silo.Capacity != 30 {
		t.Errorf("Silo.Capacity = %d, want 30", cfg.Silo.Capacity)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Security.CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}

	// defaults survive for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Silo.Headroom != 2 {
		t.Errorf("Silo.Headroom = %d, want 2 (default)", cfg.Silo.Headroom)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	configContent := `
server:
  port: 8888
  host: "127.0.0.1"

security:
  jwt_secret: "` + testSecret + `"

cache:
  backend: redis
  redis_addr: "cache.internal:6379"

logging:
  level: "warn"
`
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888 (from file)", cfg.Server.Port)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "cache.internal:6379" {
		t.Errorf("Cache = %+v, want redis backend from file", cfg.Cache)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
	if cfg.ListenAddr() != "127.0.0.1:8888" {
		t.Errorf("ListenAddr() = %q, want 127.0.0.1:8888", cfg.ListenAddr())
	}
}

func TestLoadWithKoanfMissingSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("LoadWithKoanf() error = nil, want missing secret error")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("LoadWithKoanf() error = %v, want mention of JWT_SECRET", err)
	}
}
