// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/witter/internal/models"
)

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthReady reports 503 while the document store is unreachable or its
// circuit breaker is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:    "ok",
		Docstore:  h.docstore.Backend(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if !h.docstore.Connected() {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, r, status, resp)
}
