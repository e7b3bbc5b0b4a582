// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
)

// RunGC rewrites value log files until badger reports nothing left to
// reclaim. It returns the number of files rewritten.
func RunGC(db *badger.DB, ratio float64) (int, error) {
	rewritten := 0
	for {
		err := db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return rewritten, fmt.Errorf("run GC: %w", err)
		}
		rewritten++
	}
	return rewritten, nil
}

// GCService periodically compacts the value log. It implements
// suture.Service.
type GCService struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
}

// NewGCService returns a service running GC every interval.
func NewGCService(db *badger.DB, interval time.Duration, ratio float64) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &GCService{db: db, interval: interval, ratio: ratio}
}

// Serve runs until ctx is canceled.
func (s *GCService) Serve(ctx context.Context) error {
	if s.db.Opts().InMemory {
		// No value log to compact.
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Float64("ratio", s.ratio).Msg("Store GC started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Store GC stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *GCService) runOnce() {
	if s.db.IsClosed() {
		return
	}

	n, err := RunGC(s.db, s.ratio)
	switch {
	case err != nil:
		metrics.StoreGCRuns.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Msg("Store GC failed")
	case n == 0:
		metrics.StoreGCRuns.WithLabelValues("noop").Inc()
	default:
		metrics.StoreGCRuns.WithLabelValues("rewritten").Inc()
		logging.Debug().Int("files", n).Msg("Store GC rewrote value log files")
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *GCService) String() string {
	return "store-gc"
}
