// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package models

// ErrorResponse is the body of every non-2xx response.
//
//	{"error": "email/username not registered"}
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateUserRequest is the body of POST /auth/create.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /auth/login. EmailOrUsername is
// treated as an email when it contains '@'.
type LoginRequest struct {
	EmailOrUsername string `json:"email_or_username" validate:"required,max=254"`
	Password        string `json:"password" validate:"required,max=72"`
}

// UserResponse is returned by account creation and login.
type UserResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ContentResponse is returned by the feed endpoints.
type ContentResponse struct {
	Content []Item `json:"content"`
}

// ItemResponse acknowledges a like or dislike.
type ItemResponse struct {
	ItemID string `json:"item_id"`
}

// HealthResponse is returned by the health probes.
type HealthResponse struct {
	Status    string `json:"status"`
	Docstore  string `json:"docstore,omitempty"`
	Timestamp string `json:"timestamp"`
}
