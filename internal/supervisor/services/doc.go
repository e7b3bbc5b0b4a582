// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package services adapts blocking components to suture's
// Serve(ctx) error lifecycle. Each wrapper implements fmt.Stringer so the
// supervisor can name it in its event log.
package services
