// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package metrics declares Witter's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of active API requests",
		},
	)

	// Auth Metrics
	AuthTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of session tokens issued",
		},
	)

	AuthTokenRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_rejections_total",
			Help: "Bearer tokens rejected by reason",
		},
		[]string{"reason"}, // missing, header, expired, claims, malformed
	)

	AuthLoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"}, // success, unknown_identity, bad_password, error
	)

	AuthRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Account creation attempts by outcome",
		},
		[]string{"outcome"}, // success, conflict, invalid, error
	)

	// Docstore Metrics
	DocstoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Duration of silo document store operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"backend", "operation"},
	)

	DocstoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_errors_total",
			Help: "Silo document store operations that failed",
		},
		[]string{"backend", "operation", "kind"}, // kind: not_found, unavailable, conflict, invalid
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Silo Metrics
	SiloOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silo_operations_total",
			Help: "Silo engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	SiloRepopulateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "silo_repopulate_duration_seconds",
			Help:    "Duration of silo replenishment",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	SiloItemsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "silo_items_generated_total",
			Help: "Items appended to silo buffers during replenishment",
		},
		[]string{"source"}, // ranked, random, topup
	)

	SiloItemsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "silo_items_filtered_total",
			Help: "Generated or retained items dropped because they were excluded or duplicated",
		},
	)

	SiloBufferLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "silo_buffer_length",
			Help:    "Silo buffer length after replenishment",
			Buckets: prometheus.LinearBuckets(0, 5, 9),
		},
	)

	// Ranking Metrics
	RankingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_requests_total",
			Help: "Ranking provider calls by strategy",
		},
		[]string{"strategy"}, // random, nearest, exploratory
	)

	RankingNeighborCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_neighbor_cache_total",
			Help: "Neighbour list cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	RankingCatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ranking_catalog_items",
			Help: "Number of items in the loaded content catalog",
		},
	)

	// Store maintenance
	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_gc_runs_total",
			Help: "BadgerDB value log GC runs by outcome",
		},
		[]string{"outcome"}, // rewritten, noop, error
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDocstoreOperation records the latency of one docstore call.
func RecordDocstoreOperation(backend, operation string, duration time.Duration) {
	DocstoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordDocstoreError counts a failed docstore call.
func RecordDocstoreError(backend, operation, kind string) {
	DocstoreErrors.WithLabelValues(backend, operation, kind).Inc()
}

// RecordSiloOperation counts one silo engine call.
func RecordSiloOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SiloOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordRepopulate records one replenishment cycle.
func RecordRepopulate(duration time.Duration, ranked, random, topup, filtered, bufferLen int) {
	SiloRepopulateDuration.Observe(duration.Seconds())
	SiloItemsGenerated.WithLabelValues("ranked").Add(float64(ranked))
	SiloItemsGenerated.WithLabelValues("random").Add(float64(random))
	SiloItemsGenerated.WithLabelValues("topup").Add(float64(topup))
	SiloItemsFiltered.Add(float64(filtered))
	SiloBufferLength.Observe(float64(bufferLen))
}
