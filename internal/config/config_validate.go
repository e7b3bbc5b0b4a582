// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	minJWTSecretLength   = 32
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateSilo(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateJWTSecret enforces the token signing secret. The service refuses
// to start without one.
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET (or SECRET_KEY) is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateCORS rejects wildcard origins in production.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production; set explicit origins")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("BADGER_PATH is required unless BADGER_IN_MEMORY=true")
	}
	if c.Store.GCRatio <= 0 || c.Store.GCRatio >= 1 {
		return fmt.Errorf("store.gc_ratio must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "badger":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: badger, redis")
	}
	if c.Cache.SiloTTL < 0 {
		return fmt.Errorf("SILO_TTL must not be negative")
	}
	return nil
}

// validateSilo checks the replenishment constants against each other.
func (c *Config) validateSilo() error {
	s := c.Silo
	if s.Capacity < 1 {
		return fmt.Errorf("SILO_CAPACITY must be at least 1")
	}
	if s.ConsumedSlots < 0 || s.ConsumedSlots > s.Capacity {
		return fmt.Errorf("SILO_CONSUMED_SLOTS must be between 0 and SILO_CAPACITY (%d)", s.Capacity)
	}
	if s.Headroom < 0 || s.Headroom >= s.Capacity {
		return fmt.Errorf("SILO_HEADROOM must be between 0 and SILO_CAPACITY-1")
	}
	if s.PreferenceCap < 1 {
		return fmt.Errorf("SILO_PREFERENCE_CAP must be at least 1")
	}
	if s.FeedCount < 1 || s.FeedCount > s.Capacity {
		return fmt.Errorf("SILO_FEED_COUNT must be between 1 and SILO_CAPACITY (%d)", s.Capacity)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns catch secrets copied verbatim from example configs.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
