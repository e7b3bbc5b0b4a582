// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package auth issues and validates session tokens, hashes passwords and
// provides the bearer authentication middleware.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is the fixed validity window of a session token.
const TokenLifetime = 24 * time.Hour

var (
	// ErrTokenExpired is returned for a token past its exp claim.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidClaims is returned when the signature checks out but the
	// claims are unusable (missing session_id, not yet valid).
	ErrInvalidClaims = errors.New("invalid token claim")

	// ErrMalformedToken covers bad structure, bad signature and
	// unexpected signing algorithms.
	ErrMalformedToken = errors.New("invalid token")
)

// Claims are the JWT claims of a session token.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates an issuer signing with secret. An empty secret is
// a startup error.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	return &TokenIssuer{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// IssueToken creates a signed token bound to sessionID. subject is the
// username the session belongs to. The returned time is the expiry.
func (i *TokenIssuer) IssueToken(sessionID, subject string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, fmt.Errorf("session id is required")
	}

	now := i.now()
	expiresAt := now.Add(TokenLifetime)
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate checks tokenString and returns its claims. Failures wrap
// exactly one of ErrTokenExpired, ErrInvalidClaims or ErrMalformedToken.
func (i *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrInvalidClaims)
	}

	return claims, nil
}
