// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package api exposes the account and feed routes over HTTP.
//
// Routes:
//
//	POST   /auth/create                   create an account
//	POST   /auth/login                    open a session, token in Authorization
//	DELETE /auth/logout                   drop the session's silo
//	GET    /user/main/populate            serve the buffer, then replenish it
//	GET    /user/main/items?count=N       read the buffer only
//	PUT    /user/main/{item_id}/like      record a like
//	PUT    /user/main/{item_id}/dislike   record a dislike
//	GET    /health/live, /health/ready    probes
//	GET    /metrics                       Prometheus
package api

import (
	"context"
	"time"

	"github.com/tomtom215/witter/internal/models"
)

// SiloService is the per-session feed state. *silo.Engine satisfies it.
type SiloService interface {
	CreateSilo(ctx context.Context, sessionID string) error
	DestroySilo(ctx context.Context, sessionID string) error
	IncludeItem(ctx context.Context, sessionID, itemID string) error
	ExcludeItem(ctx context.Context, sessionID, itemID string) error
	GetItems(ctx context.Context, sessionID string, count int) ([]models.Item, error)
	Repopulate(ctx context.Context, sessionID string) error
}

// UserStore persists accounts. *users.Store satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmailOrUsername(ctx context.Context, identity string) (*models.User, error)
}

// TokenIssuer signs session tokens. *auth.TokenIssuer satisfies it.
type TokenIssuer interface {
	IssueToken(sessionID, subject string) (string, time.Time, error)
}

// PasswordHasher hashes and checks passwords. *auth.PasswordHasher
// satisfies it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// HealthChecker reports document store reachability. *docstore.Adapter
// satisfies it.
type HealthChecker interface {
	Backend() string
	Connected() bool
}

// Handler serves the API routes.
type Handler struct {
	silos        SiloService
	users        UserStore
	tokens       TokenIssuer
	passwords    PasswordHasher
	docstore     HealthChecker
	feedCount    int
	primeOnLogin bool
}

// HandlerOptions wires a Handler.
type HandlerOptions struct {
	Silos     SiloService
	Users     UserStore
	Tokens    TokenIssuer
	Passwords PasswordHasher
	Docstore  HealthChecker

	// FeedCount is how many items populate serves. Zero or less serves
	// the whole buffer.
	FeedCount int

	// PrimeOnLogin fills a new silo before the login response so the first
	// populate has content.
	PrimeOnLogin bool
}

// NewHandler creates a Handler.
func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		silos:        opts.Silos,
		users:        opts.Users,
		tokens:       opts.Tokens,
		passwords:    opts.Passwords,
		docstore:     opts.Docstore,
		feedCount:    opts.FeedCount,
		primeOnLogin: opts.PrimeOnLogin,
	}
}
