// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

/*
Package supervisor runs the long-lived Casefinder services under a suture v4
tree.

	casefinder
	├── data-layer
	│   └── WorkerService      (embedding worker)
	└── api-layer
	    └── HTTPServerService  (chi router)

Crashed services restart with suture's failure decay and backoff. A crash in
one layer does not restart the other. On shutdown the api layer is stopped
and drained before the data layer, so requests already accepted by the HTTP
server can still reach the worker. Supervisor events go to zerolog through
sutureslog and the logging package's slog bridge:

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewWorkerService(w))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err := tree.Serve(ctx)

See the services subpackage for the wrappers.
*/
package supervisor
