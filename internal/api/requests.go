// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/witter/internal/silo"
)

// maxBodyBytes caps request bodies on the auth routes.
const maxBodyBytes = 64 << 10

// requestError is a client error whose message is sent as-is with 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeFields reads a flat JSON object or a form-encoded body into a map.
// Keys outside allowed are rejected with the first offending key in
// sorted order.
func decodeFields(w http.ResponseWriter, r *http.Request, allowed ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var fields map[string]string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, badRequest("invalid JSON body")
		}
		fields = make(map[string]string, len(raw))
		for k, v := range raw {
			switch v := v.(type) {
			case string:
				fields[k] = v
			case nil:
				fields[k] = ""
			default:
				return nil, badRequest("field '%s' must be a string", k)
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, badRequest("request body too large")
			}
			return nil, badRequest("invalid form body")
		}
		fields = make(map[string]string, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			} else {
				fields[k] = ""
			}
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !slices.Contains(allowed, k) {
			return nil, badRequest("unprocessable entity '%s'", k)
		}
	}

	return fields, nil
}

// parseCount reads the optional count query parameter. Absent means all.
func parseCount(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return silo.AllItems, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("count must be a non-negative integer")
	}
	return n, nil
}
