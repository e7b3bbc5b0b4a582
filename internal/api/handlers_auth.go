// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/witter/internal/auth"
	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/metrics"
	"github.com/tomtom215/witter/internal/models"
	"github.com/tomtom215/witter/internal/users"
	"github.com/tomtom215/witter/internal/validation"
)

// CreateUser handles POST /auth/create.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	outcome := "error"
	defer func() { metrics.AuthRegistrations.WithLabelValues(outcome).Inc() }()

	fields, err := decodeFields(w, r, "username", "password", "email")
	if err != nil {
		outcome = "invalid"
		respondServiceError(w, r, "create_user", err)
		return
	}

	req := models.CreateUserRequest{
		Username: strings.TrimSpace(fields["username"]),
		Email:    validation.NormalizeEmail(fields["email"]),
		Password: fields["password"],
	}

	switch {
	case req.Username == "":
		err = badRequest("username not found")
	case req.Password == "":
		err = badRequest("password not found")
	case req.Email == "":
		err = badRequest("email not found")
	case validation.GetValidator().Var(req.Email, "email") != nil:
		err = badRequest("email address '%s' is not valid", req.Email)
	}
	if err != nil {
		outcome = "invalid"
		respondServiceError(w, r, "create_user", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		outcome = "invalid"
		respondServiceError(w, r, "create_user", verr)
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		respondServiceError(w, r, "create_user", err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	err = h.users.Create(r.Context(), user)
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		outcome = "conflict"
		writeError(w, r, http.StatusForbidden, "user with email '"+req.Email+"' already exist")
		return
	case errors.Is(err, users.ErrUsernameTaken):
		outcome = "conflict"
		writeError(w, r, http.StatusForbidden, "user with username '"+req.Username+"' already exist")
		return
	case err != nil:
		respondServiceError(w, r, "create_user", err)
		return
	}

	outcome = "success"
	logging.Ctx(r.Context()).Info().
		Str("username", sanitizeLogValue(user.Username)).
		Msg("Account created")

	writeJSON(w, r, http.StatusCreated, models.UserResponse{
		Username: user.Username,
		Email:    user.Email,
	})
}

// Login handles POST /auth/login. A new session gets a fresh silo and a
// signed token carrying its id, returned in the Authorization header.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	outcome := "error"
	defer func() { metrics.AuthLoginAttempts.WithLabelValues(outcome).Inc() }()

	fields, err := decodeFields(w, r, "email_or_username", "password")
	if err != nil {
		outcome = "invalid"
		respondServiceError(w, r, "login", err)
		return
	}

	req := models.LoginRequest{
		EmailOrUsername: strings.TrimSpace(fields["email_or_username"]),
		Password:        fields["password"],
	}
	if req.EmailOrUsername == "" || req.Password == "" {
		outcome = "invalid"
		writeError(w, r, http.StatusBadRequest, "Fill both username and password field")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		outcome = "invalid"
		respondServiceError(w, r, "login", verr)
		return
	}

	user, err := h.users.FindByEmailOrUsername(r.Context(), req.EmailOrUsername)
	if errors.Is(err, users.ErrNotFound) {
		outcome = "unknown_identity"
		writeError(w, r, http.StatusUnauthorized, "email/username not registered")
		return
	}
	if err != nil {
		respondServiceError(w, r, "login", err)
		return
	}

	if err := h.passwords.Compare(user.PasswordHash, req.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			respondServiceError(w, r, "login", err)
			return
		}
		outcome = "bad_password"
		writeError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	sessionID := uuid.NewString()
	ctx := logging.ContextWithSessionID(r.Context(), sessionID)
	r = r.WithContext(ctx)

	if err := h.silos.CreateSilo(ctx, sessionID); err != nil {
		respondServiceError(w, r, "login", err)
		return
	}
	if h.primeOnLogin {
		// An empty first feed is acceptable; populate retries the fill.
		if err := h.silos.Repopulate(ctx, sessionID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to prime new silo")
		}
	}

	token, expires, err := h.tokens.IssueToken(sessionID, user.Username)
	if err != nil {
		respondServiceError(w, r, "login", err)
		return
	}
	metrics.AuthTokensIssued.Inc()

	outcome = "success"
	logging.Ctx(ctx).Info().
		Str("username", sanitizeLogValue(user.Username)).
		Time("expires_at", expires).
		Msg("Session opened")

	w.Header().Set("Authorization", token)
	writeJSON(w, r, http.StatusCreated, models.UserResponse{
		Email:    user.Email,
		Username: user.Username,
	})
}

// Logout handles DELETE /auth/logout by destroying the session's silo. The
// token stays signed but no longer maps to any state.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionIDFromContext(r.Context())
	if err := h.silos.DestroySilo(r.Context(), sessionID); err != nil {
		respondServiceError(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
