// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package docstore

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
)

// callbackError carries an error produced by our own code inside a
// backend call (a mutation callback or a decode). It says nothing about
// backend health and must not trip the breaker.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// newBreaker builds the circuit breaker guarding one backend. It opens
// after maxFailures consecutive backend failures and probes again after
// timeout.
func newBreaker(name string, maxFailures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= maxFailures
			if trip {
				logging.Warn().
					Str("breaker", name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
				return true
			}
			var cbErr *callbackError
			return errors.As(err, &cbErr)
		},

		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
