// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

/*
Package supervisor runs the long-lived services of the server under a
suture v4 supervisor tree.

The tree has two layers so a failing maintenance job cannot take the API
down with it:

	RootSupervisor ("witter")
	├── StorageSupervisor ("storage-layer")
	│   └── store.GCService
	└── APISupervisor ("api-layer")
	    └── services.HTTPServerService

Crashed services are restarted with suture's backoff. Canceling the context
passed to Serve stops every service, waiting at most
TreeConfig.ShutdownTimeout for each.

Supervisor events are logged through sutureslog, backed by the zerolog
logger via logging.NewSlogLogger.
*/
package supervisor
