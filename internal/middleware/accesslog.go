// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/witter/internal/logging"
)

// DefaultSlowRequestThreshold is the latency above which AccessLog warns.
const DefaultSlowRequestThreshold = time.Second

// AccessLog logs every request at debug level, server errors at error
// level and requests slower than slow at warn level.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequestThreshold
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			logger := logging.Ctx(r.Context())
			event := logger.Debug()
			switch {
			case rec.statusCode >= http.StatusInternalServerError:
				event = logger.Error()
			case duration > slow:
				event = logger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Int("status", rec.statusCode).
				Dur("duration", duration).
				Msg("HTTP request")
		})
	}
}
