// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

/*
Package middleware provides HTTP middleware shared by every route.

  - RequestID: reuses or generates X-Request-ID and puts it in the logging context
  - AccessLog: one structured log line per request, warning on slow ones
  - PrometheusMetrics: request counters, durations and in-flight gauge

Metrics and logs label requests by their chi route pattern
("/user/main/{item_id}/like") rather than the raw path, so item ids do
not create unbounded label sets.
*/
package middleware
