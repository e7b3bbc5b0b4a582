// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

// Package testinfra provides container helpers for integration tests.
//
// It uses testcontainers-go to start a real Redis so the redis silo
// backend is exercised against the server it runs on in production:
//
//	func TestRedisBackend(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc.Container)
//
//	    backend := docstore.NewRedisBackend(docstore.RedisOptions{Addr: rc.Addr})
//	    // ...
//	}
//
// Everything here is behind the integration build tag. Tests are skipped
// when Docker is not available.
package testinfra
