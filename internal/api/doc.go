// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

/*
Package api exposes the strategy pipeline over HTTP.

Routes are mounted under the configured prefix (default /api/v1):

	POST   /{category}                      create, ?session_id= associates
	GET    /{category}/{id}                 strategy get
	POST   /{category}/{id}/initialize      strategy initialize
	GET    /dataresource/{id}/info          stored configuration
	GET    /parser/{id}/info                stored configuration
	POST   /transformation/{id}/execute     transformation run
	GET    /transformation/{id}/status      ?task_id= status
	GET    /session                         list session ids
	POST   /session                         create session
	GET    /session/{session_id}            read, with ETag
	PUT    /session/{session_id}            merge, honours If-Match
	DELETE /session/{session_id}            delete one
	DELETE /session                         delete all (admin)
	GET    /redis/{key}                     raw cache value (admin, opt-in)
	GET    /info                            version, strategies, cache
	GET    /admin/info                      runtime, routes, request stats (admin)

/health and /metrics are served outside the prefix without authentication.

Category is one of dataresource, filter, function, mapping, parser or
transformation. Trailing slashes are accepted on every route.

Successful responses are plain JSON documents. Failures use one envelope:

	{"success": false, "error": {"code": "NOT_FOUND", "message": "...",
	 "details": {"field": "session_id", "id": "session-..."}, "request_id": "..."}}

The error taxonomy maps to HTTP as follows: not found 404, invalid request
400, unprocessable configuration 422, version conflict 409, cache type
mismatch 500, strategy failure 502, cache unavailable 503.
*/
package api
