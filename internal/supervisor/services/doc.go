// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

/*
Package services provides suture.Service wrappers for Casefinder components.

Each wrapper translates a component lifecycle into suture's context-aware
Serve pattern:

	HTTPServerService    ListenAndServe / Shutdown  (api layer)
	WorkerService        Start / Stop / Done        (data layer)

Return values drive supervisor behavior:

	ctx.Err()                 shutdown requested, normal termination
	suture.ErrDoNotRestart    component finished for good
	other error               crash, the supervisor restarts the service

Every wrapper implements fmt.Stringer so suture log lines name the service.
*/
package services
