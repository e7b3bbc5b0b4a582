// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/witter/internal/auth"
	"github.com/tomtom215/witter/internal/models"
	"github.com/tomtom215/witter/internal/silo"
	"github.com/tomtom215/witter/internal/validation"
)

// itemIDRules bounds path item ids before they reach the store.
const itemIDRules = "required,max=128,printascii"

// Populate handles GET /user/main/populate. The current front of the
// buffer is read, the buffer is replenished, and only then is the read
// returned. A failed replenish fails the request and leaves the buffer as
// it was, so a retry serves the same items.
func (h *Handler) Populate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := auth.SessionIDFromContext(ctx)

	count := h.feedCount
	if count <= 0 {
		count = silo.AllItems
	}

	items, err := h.silos.GetItems(ctx, sessionID, count)
	if err != nil {
		respondServiceError(w, r, "populate", err)
		return
	}

	if err := h.silos.Repopulate(ctx, sessionID); err != nil {
		respondServiceError(w, r, "populate", err)
		return
	}

	writeJSON(w, r, http.StatusOK, models.ContentResponse{Content: items})
}

// Items handles GET /user/main/items. It reads the buffer without
// replenishing it.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	count, err := parseCount(r)
	if err != nil {
		respondServiceError(w, r, "items", err)
		return
	}

	items, err := h.silos.GetItems(r.Context(), auth.SessionIDFromContext(r.Context()), count)
	if err != nil {
		respondServiceError(w, r, "items", err)
		return
	}

	writeJSON(w, r, http.StatusOK, models.ContentResponse{Content: items})
}

// Like handles PUT /user/main/{item_id}/like.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	h.setPreference(w, r, "like", h.silos.IncludeItem)
}

// Dislike handles PUT /user/main/{item_id}/dislike.
func (h *Handler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.setPreference(w, r, "dislike", h.silos.ExcludeItem)
}

type preferenceFunc func(ctx context.Context, sessionID, itemID string) error

func (h *Handler) setPreference(w http.ResponseWriter, r *http.Request, op string, apply preferenceFunc) {
	itemID := chi.URLParam(r, "item_id")
	if validation.GetValidator().Var(itemID, itemIDRules) != nil {
		respondServiceError(w, r, op, badRequest("invalid item id '%s'", sanitizeLogValue(itemID)))
		return
	}

	if err := apply(r.Context(), auth.SessionIDFromContext(r.Context()), itemID); err != nil {
		respondServiceError(w, r, op, err)
		return
	}

	writeJSON(w, r, http.StatusOK, models.ItemResponse{ItemID: itemID})
}
