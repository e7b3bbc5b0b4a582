// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestBearerAuth(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	valid, _, err := issuer.IssueToken("sess-42", "alice")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	expiredIssuer := newTestIssuer(t)
	past := time.Now().Add(-25 * time.Hour)
	expiredIssuer.now = func() time.Time { return past }
	expired, _, err := expiredIssuer.IssueToken("sess-old", "alice")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "unauthenticated"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "invalid authorization header"},
		{"raw token without scheme", valid, http.StatusUnauthorized, "invalid authorization header"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "invalid authorization header"},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotSession string
			handler := BearerAuth(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSession = SessionIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/user/main/populate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if gotSession != "sess-42" {
					t.Errorf("SessionIDFromContext() = %q, want sess-42", gotSession)
				}
				return
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v (%s)", err, rec.Body.String())
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
			if !strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer") {
				t.Errorf("WWW-Authenticate = %q, want Bearer challenge", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestSessionIDFromContext_Empty(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionIDFromContext(req.Context()); got != "" {
		t.Errorf("SessionIDFromContext() = %q, want empty", got)
	}
}
