// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
)

type contextKey string

// ClaimsContextKey holds the validated *Claims of the request.
const ClaimsContextKey contextKey = "claims"

// TokenValidator validates a raw bearer token.
type TokenValidator interface {
	Validate(token string) (*Claims, error)
}

// BearerAuth returns middleware that requires "Authorization: Bearer <token>".
// Rejected requests get 401 with {"error": reason}. Accepted requests carry
// the claims in their context; see SessionIDFromContext.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, reason, msg := extractBearerToken(r.Header.Get("Authorization"))
			if token == "" {
				metrics.AuthTokenRejections.WithLabelValues(reason).Inc()
				writeUnauthorized(w, msg)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				reason, msg := classifyTokenError(err)
				metrics.AuthTokenRejections.WithLabelValues(reason).Inc()
				logging.Ctx(r.Context()).Debug().Err(err).Str("reason", reason).Msg("Bearer token rejected")
				writeUnauthorized(w, msg)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = logging.ContextWithSessionID(ctx, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by BearerAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

// SessionIDFromContext returns the session ID of an authenticated request,
// or "" when the request did not pass BearerAuth.
func SessionIDFromContext(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.SessionID
	}
	return ""
}

// extractBearerToken returns the token, or an empty token with the
// rejection reason and client message.
func extractBearerToken(header string) (token, reason, msg string) {
	if header == "" {
		return "", "missing", "unauthenticated"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", "header", "invalid authorization header"
	}

	return strings.TrimSpace(parts[1]), "", ""
}

func classifyTokenError(err error) (reason, msg string) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired", ErrTokenExpired.Error()
	case errors.Is(err, ErrInvalidClaims):
		return "claims", ErrInvalidClaims.Error()
	default:
		return "malformed", ErrMalformedToken.Error()
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="witter"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth error response")
	}
}
