// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/witter/internal/docstore"
	"github.com/tomtom215/witter/internal/logging"
	"github.com/tomtom215/witter/internal/silo"
	"github.com/tomtom215/witter/internal/validation"
)

const (
	msgUnavailable    = "service temporarily unavailable"
	msgSessionExpired = "session expired"
	msgInternal       = "internal server error"
)

// respondServiceError maps a handler error to its status and message.
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var reqErr *requestError
	var valErr *validation.RequestValidationError

	switch {
	case errors.As(err, &reqErr):
		writeError(w, r, http.StatusBadRequest, reqErr.msg)
	case errors.As(err, &valErr):
		writeError(w, r, http.StatusBadRequest, valErr.Error())
	case errors.Is(err, silo.ErrInvalidItemID):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, silo.ErrNotFound):
		writeError(w, r, http.StatusUnauthorized, msgSessionExpired)
	case errors.Is(err, docstore.ErrUnavailable):
		logging.Ctx(r.Context()).Warn().Err(err).Str("op", op).Msg("Document store unavailable")
		writeError(w, r, http.StatusServiceUnavailable, msgUnavailable)
	case errors.Is(err, context.Canceled):
		logging.Ctx(r.Context()).Debug().Str("op", op).Msg("Request canceled by client")
		writeError(w, r, http.StatusServiceUnavailable, msgUnavailable)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("Request failed")
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}
