// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

/*
Package auth provides the authentication dependency applied to API routes.

Authentication Modes (OTEAPI_AUTH_MODE):

  - none: every request runs as the anonymous subject (default)
  - jwt: Authorization: Bearer tokens signed with HS256
  - basic: HTTP Basic credentials checked against a bcrypt hash

Authentication is independent of the per-resource token. The raw
Authorization header is still handed to resource creation, which stores it
as the resource token when the body carries none.

Usage Example:

	mw, err := auth.NewMiddleware(&cfg.Security, nil)
	if err != nil {
	    log.Fatal(err)
	}
	r.Use(mw.Authenticate)

	// In a handler
	subject := auth.SubjectFromContext(r.Context())
*/
package auth
