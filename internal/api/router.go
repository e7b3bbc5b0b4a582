// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/witter/internal/auth"
	"github.com/tomtom215/witter/internal/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Handler    *Handler
	Tokens     auth.TokenValidator
	Middleware *ChiMiddleware

	// RequestTimeout bounds each API request. Zero disables it.
	RequestTimeout time.Duration

	// SlowRequestThreshold is when the access log escalates to warn.
	SlowRequestThreshold time.Duration
}

// NewRouter builds the HTTP routes.
func NewRouter(opts RouterOptions) http.Handler {
	mw := opts.Middleware
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	slow := opts.SlowRequestThreshold
	if slow <= 0 {
		slow = middleware.DefaultSlowRequestThreshold
	}
	h := opts.Handler

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(slow))
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(APISecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		if opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		}

		r.With(mw.RateLimitAuth()).Post("/create", h.CreateUser)
		r.With(mw.RateLimitLogin()).Post("/login", h.Login)
		r.With(auth.BearerAuth(opts.Tokens)).Delete("/logout", h.Logout)
	})

	r.Route("/user/main", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		if opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(opts.RequestTimeout))
		}
		r.Use(auth.BearerAuth(opts.Tokens))

		r.Get("/populate", h.Populate)
		r.Get("/items", h.Items)
		r.Put("/{item_id}/like", h.Like)
		r.Put("/{item_id}/dislike", h.Dislike)
	})

	return r
}
