// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/witter/internal/auth"
	"github.com/tomtom215/witter/internal/docstore"
	"github.com/tomtom215/witter/internal/models"
	"github.com/tomtom215/witter/internal/ranking"
	"github.com/tomtom215/witter/internal/silo"
	"github.com/tomtom215/witter/internal/store"
	"github.com/tomtom215/witter/internal/users"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

type testServer struct {
	router  http.Handler
	engine  *silo.Engine
	tokens  *auth.TokenIssuer
	adapter *docstore.Adapter
}

type serverOptions struct {
	feedCount    int
	primeOnLogin bool
	rateLimit    bool
	silos        SiloService
	health       HealthChecker
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	adapter := docstore.NewAdapter(context.Background(), docstore.NewBadgerBackend(db, time.Hour), docstore.Options{})
	catalog, err := ranking.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	engine := silo.NewEngine(adapter, ranking.NewProvider(catalog, 7, 32), silo.DefaultConfig())

	tokens, err := auth.NewTokenIssuer(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	var silos SiloService = engine
	if opts.silos != nil {
		silos = opts.silos
	}
	var health HealthChecker = adapter
	if opts.health != nil {
		health = opts.health
	}

	handler := NewHandler(HandlerOptions{
		Silos:        silos,
		Users:        users.NewStore(db),
		Tokens:       tokens,
		Passwords:    auth.NewPasswordHasher(bcrypt.MinCost),
		Docstore:     health,
		FeedCount:    opts.feedCount,
		PrimeOnLogin: opts.primeOnLogin,
	})

	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.RateLimitDisabled = !opts.rateLimit

	return &testServer{
		router: NewRouter(RouterOptions{
			Handler:    handler,
			Tokens:     tokens,
			Middleware: NewChiMiddleware(mwConfig),
		}),
		engine:  engine,
		tokens:  tokens,
		adapter: adapter,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, fields map[string]string) *http.Request {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func bearerRequest(method, target, token string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (s *testServer) register(t *testing.T, username, email, password string) {
	t.Helper()
	rec := s.do(t, formRequest(http.MethodPost, "/auth/create", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
}

func (s *testServer) login(t *testing.T, identity, password string) string {
	t.Helper()
	rec := s.do(t, formRequest(http.MethodPost, "/auth/login", map[string]string{
		"email_or_username": identity,
		"password":          password,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("login %s: status = %d, body = %s", identity, rec.Code, rec.Body.String())
	}
	token := rec.Header().Get("Authorization")
	if token == "" {
		t.Fatal("login returned no Authorization header")
	}
	return token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decodeBody[models.ErrorResponse](t, rec)
	if msg != "" && body.Error != msg {
		t.Errorf("error = %q, want %q", body.Error, msg)
	}
}
