// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/witter/internal/metrics"
)

// PrometheusMetrics records request count, latency and in-flight requests.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		metrics.RecordAPIRequest(
			r.Method,
			routePattern(r),
			strconv.Itoa(rec.statusCode),
			time.Since(start),
		)
	})
}
