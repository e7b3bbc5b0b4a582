// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package main is the entry point for the Witter server.
//
// Witter serves a personalized feed per login session. Each session owns a
// silo: a buffer of upcoming items plus the likes and dislikes recorded
// since the last refill. Serving the feed refills the buffer from the
// session's likes.
//
// # Startup
//
//  1. Configuration: defaults, then config.yaml, then environment (Koanf v2)
//  2. Store: BadgerDB for accounts, and for silos with CACHE_BACKEND=badger
//  3. Document store: Badger or Redis behind a circuit breaker
//  4. Ranking: content catalog and the neighbour cache
//  5. HTTP server and store GC under the supervisor tree
//
// # Configuration
//
//	JWT_SECRET        signing secret, required
//	CACHE_BACKEND     badger (default) or redis
//	REDIS_ADDR        redis host:port when CACHE_BACKEND=redis
//	BADGER_PATH       Badger directory
//	CATALOG_PATH      JSON catalog file, empty for the built-in one
//
// # Signals
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests within SHUTDOWN_TIMEOUT before the stores close.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/witter/internal/config"
	"github.com/tomtom215/witter/internal/logging"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("cache_backend", cfg.Cache.Backend).
		Bool("store_in_memory", cfg.Store.InMemory).
		Msg("Starting Witter")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer app.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.ListenAddr()).Msg("Starting supervisor tree")
	errCh := app.tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := app.tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
