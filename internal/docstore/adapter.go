// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
)

// Options tunes an Adapter.
type Options struct {
	// PingTimeout bounds the connectivity check made at construction.
	PingTimeout time.Duration

	// BreakerMaxFailures is the number of consecutive backend failures
	// that open the circuit.
	BreakerMaxFailures uint32

	// BreakerTimeout is how long the circuit stays open before probing.
	BreakerTimeout time.Duration
}

// Adapter provides document and field operations over a Backend.
//
// If the backend cannot be reached when the adapter is built, the adapter
// is permanently disconnected and every call returns ErrUnavailable
// without touching the backend. Runtime failures are also reported as
// ErrUnavailable; a circuit breaker fails fast while the backend is down.
type Adapter struct {
	backend   Backend
	name      string
	connected bool
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// NewAdapter pings backend and returns an adapter bound to it. It never
// fails: an unreachable backend yields a disconnected adapter.
func NewAdapter(ctx context.Context, backend Backend, opts Options) *Adapter {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	name := backend.Name()
	a := &Adapter{
		backend: backend,
		name:    name,
		breaker: newBreaker("docstore-"+name, opts.BreakerMaxFailures, opts.BreakerTimeout),
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()

	if err := backend.Ping(pingCtx); err != nil {
		logging.Error().Err(err).Str("backend", name).Msg("Document store unreachable, adapter disabled")
		return a
	}

	a.connected = true
	logging.Info().Str("backend", name).Msg("Document store connected")
	return a
}

// Backend returns the backend name.
func (a *Adapter) Backend() string {
	return a.name
}

// Connected reports whether calls can currently reach the backend. It is
// false for a disconnected adapter and while the circuit is open.
func (a *Adapter) Connected() bool {
	return a.connected && a.breaker.State() != gobreaker.StateOpen
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}

// Set stores doc at key, replacing any previous value.
func (a *Adapter) Set(ctx context.Context, key string, doc Document) error {
	if doc == nil {
		doc = Document{}
	}
	raw, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = a.call(ctx, "set", func() ([]byte, error) {
		return nil, a.backend.Store(ctx, key, raw)
	})
	return err
}

// Get decodes field of the document at key into dst. An empty field
// decodes the whole document. Returns ErrNotFound when the key or the
// field is absent.
func (a *Adapter) Get(ctx context.Context, key, field string, dst any) error {
	raw, err := a.call(ctx, "get", func() ([]byte, error) {
		return a.backend.Load(ctx, key)
	})
	if err != nil {
		return err
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		a.recordError("get", err)
		return err
	}
	if field == "" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return nil
	}
	if err := doc.Decode(field, dst); err != nil {
		a.recordError("get", err)
		return err
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	_, err := a.call(ctx, "delete", func() ([]byte, error) {
		return nil, a.backend.Remove(ctx, key)
	})
	return err
}

// AppendArray appends values to the array at field, keeping at most
// maxLen of the most recent entries. maxLen <= 0 is unbounded.
func (a *Adapter) AppendArray(ctx context.Context, key, field string, maxLen int, values ...any) error {
	return a.modify(ctx, "append_array", key, func(doc Document) error {
		return doc.AppendArray(field, maxLen, values...)
	})
}

// InsertField adds id to the member set at field, evicting the oldest
// members beyond maxLen.
func (a *Adapter) InsertField(ctx context.Context, key, field, id string, maxLen int) error {
	return a.modify(ctx, "insert_field", key, func(doc Document) error {
		return doc.InsertMember(field, id, maxLen)
	})
}

// RemoveField deletes id from the member set at field.
func (a *Adapter) RemoveField(ctx context.Context, key, field, id string) error {
	return a.modify(ctx, "remove_field", key, func(doc Document) error {
		return doc.RemoveMember(field, id)
	})
}

// Exists reports whether id is in the member set at field. Returns
// ErrNotFound when key is absent.
func (a *Adapter) Exists(ctx context.Context, key, field, id string) (bool, error) {
	raw, err := a.call(ctx, "exists", func() ([]byte, error) {
		return a.backend.Load(ctx, key)
	})
	if err != nil {
		return false, err
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		a.recordError("exists", err)
		return false, err
	}
	return doc.HasMember(field, id)
}

// Update runs fn on the document at key and stores the result as one
// atomic read-modify-write. fn may run more than once when it races with
// another writer; it must not have side effects outside doc. An error
// from fn aborts the update and is returned unchanged.
func (a *Adapter) Update(ctx context.Context, key string, fn func(Document) error) error {
	return a.modify(ctx, "update", key, fn)
}

func (a *Adapter) modify(ctx context.Context, op, key string, fn func(Document) error) error {
	_, err := a.call(ctx, op, func() ([]byte, error) {
		return nil, a.backend.Modify(ctx, key, func(current []byte) ([]byte, error) {
			doc, err := ParseDocument(current)
			if err != nil {
				return nil, &callbackError{err: err}
			}
			if err := fn(doc); err != nil {
				return nil, &callbackError{err: err}
			}
			next, err := doc.Bytes()
			if err != nil {
				return nil, &callbackError{err: err}
			}
			return next, nil
		})
	})

	var cbErr *callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}
	return err
}

// call runs one backend operation through the breaker and maps its error.
func (a *Adapter) call(ctx context.Context, op string, fn func() ([]byte, error)) ([]byte, error) {
	if !a.connected {
		metrics.RecordDocstoreError(a.name, op, "unavailable")
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := a.breaker.Execute(fn)
	metrics.RecordDocstoreOperation(a.name, op, time.Since(start))

	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(a.breaker.Name(), "success").Inc()
		return out, nil
	}
	return nil, a.classify(op, err)
}

func (a *Adapter) classify(op string, err error) error {
	var cbErr *callbackError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(a.breaker.Name(), "rejected").Inc()
		metrics.RecordDocstoreError(a.name, op, "unavailable")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.As(err, &cbErr):
		metrics.CircuitBreakerRequests.WithLabelValues(a.breaker.Name(), "success").Inc()
		a.recordError(op, err)
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(a.breaker.Name(), "failure").Inc()
		metrics.RecordDocstoreError(a.name, op, "unavailable")
		logging.Warn().Err(err).Str("backend", a.name).Str("operation", op).Msg("Document store call failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (a *Adapter) recordError(op string, err error) {
	kind := "invalid"
	switch {
	case errors.Is(err, ErrNotFound):
		kind = "not_found"
	case errors.Is(err, ErrConflict):
		kind = "conflict"
	case errors.Is(err, ErrInvalidDocument):
		kind = "invalid"
	default:
		// Errors returned by Update callbacks belong to the caller.
		return
	}
	metrics.RecordDocstoreError(a.name, op, kind)
}
