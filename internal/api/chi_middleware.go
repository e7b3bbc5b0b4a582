// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/witter/internal/config"
	"github.com/tomtom215/witter/internal/middleware"
)

// ChiMiddlewareConfig holds configuration for the router middleware.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSExposedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultChiMiddlewareConfig returns a restrictive configuration. CORS
// origins are empty until configured.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		CORSExposedHeaders: []string{"Authorization", middleware.RequestIDHeader},
		CORSMaxAge:         86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// ChiMiddlewareConfigFrom builds the middleware configuration from the
// security section of the service config.
func ChiMiddlewareConfigFrom(cfg *config.SecurityConfig) *ChiMiddlewareConfig {
	mw := DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.CORSOrigins
	if cfg.RateLimitReqs > 0 {
		mw.RateLimitRequests = cfg.RateLimitReqs
	}
	if cfg.RateLimitWindow > 0 {
		mw.RateLimitWindow = cfg.RateLimitWindow
	}
	mw.RateLimitDisabled = cfg.RateLimitDisabled
	return mw
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a middleware factory with the given configuration.
func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: cfg.CORSAllowedMethods,
		AllowedHeaders: cfg.CORSAllowedHeaders,
		ExposedHeaders: cfg.CORSExposedHeaders,
		MaxAge:         cfg.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: cfg,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP limiter for API routes.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitConfig defines rate limit parameters for specific endpoints.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

var (
	// RateLimitAuth limits account creation.
	RateLimitAuth = RateLimitConfig{Requests: 5, Window: time.Minute}

	// RateLimitLogin limits login attempts per IP.
	RateLimitLogin = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}

	// RateLimitHealth is permissive for probes.
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// RateLimitCustom returns a per-IP limiter with the given parameters, or a
// pass-through when rate limiting is disabled.
func (m *ChiMiddleware) RateLimitCustom(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusTooManyRequests, "too many requests")
		}),
	)
}

// RateLimitAuth returns the limiter for account creation.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitAuth)
}

// RateLimitLogin returns the limiter for login.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitLogin)
}

// RateLimitHealth returns the limiter for health probes.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitHealth)
}

// APISecurityHeaders adds security headers to every API response. HSTS is
// only sent when the request arrived over TLS or via a TLS-terminating
// proxy.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
