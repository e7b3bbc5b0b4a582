// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/witter/internal/api"
	"github.com/tomtom215/witter/internal/auth"
	"github.com/tomtom215/witter/internal/config"
	"github.com/tomtom215/witter/internal/docstore"
	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/ranking"
	"github.com/tomtom215/witter/internal/silo"
	"github.com/tomtom215/witter/internal/store"
	"github.com/tomtom215/witter/internal/supervisor"
	"github.com/tomtom215/witter/internal/supervisor/services"
	"github.com/tomtom215/witter/internal/users"
)

// app holds the wired components and the resources main must release.
type app struct {
	db      *badger.DB
	docs    *docstore.Adapter
	handler http.Handler
	tree    *supervisor.SupervisorTree
}

// newApp opens the stores and builds the HTTP handler and supervisor tree.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := store.Open(&cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{db: db}
	if err := a.wire(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, cfg *config.Config) error {
	backend, err := newBackend(&cfg.Cache, a.db)
	if err != nil {
		return err
	}
	a.docs = docstore.NewAdapter(ctx, backend, docstore.Options{
		PingTimeout:        cfg.Cache.DialTimeout,
		BreakerMaxFailures: cfg.Cache.BreakerMaxFailures,
		BreakerTimeout:     cfg.Cache.BreakerTimeout,
	})

	provider, err := ranking.Load(&cfg.Ranking)
	if err != nil {
		return err
	}
	engine := silo.NewEngine(a.docs, provider, silo.ConfigFrom(&cfg.Silo))

	tokens, err := auth.NewTokenIssuer(cfg.Security.JWTSecret)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.HandlerOptions{
		Silos:        engine,
		Users:        users.NewStore(a.db),
		Tokens:       tokens,
		Passwords:    auth.NewPasswordHasher(cfg.Security.BcryptCost),
		Docstore:     a.docs,
		FeedCount:    cfg.Silo.FeedCount,
		PrimeOnLogin: cfg.Silo.PrimeOnLogin,
	})
	a.handler = api.NewRouter(api.RouterOptions{
		Handler:        handler,
		Tokens:         tokens,
		Middleware:     api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)),
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           a.handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	tree.AddStorageService(store.NewGCService(a.db, cfg.Store.GCInterval, cfg.Store.GCRatio))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	a.tree = tree

	return nil
}

// newBackend selects the silo document backend. The Badger backend shares
// the account database.
func newBackend(cfg *config.CacheConfig, db *badger.DB) (docstore.Backend, error) {
	switch cfg.Backend {
	case "", "badger":
		return docstore.NewBadgerBackend(db, cfg.SiloTTL), nil
	case "redis":
		return docstore.NewRedisBackend(docstore.RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: cfg.DialTimeout,
			TTL:         cfg.SiloTTL,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Close releases the document store and the database, in that order.
func (a *app) Close() {
	if a.docs != nil {
		if err := a.docs.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing document store")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}
}
