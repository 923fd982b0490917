// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package authz gates the administrative routes using Casbin.
//
// Request flow:
//
//	Request -> auth.Middleware -> authz.Middleware -> Handler
//	               |                    |
//	          Authenticate         Authorize (Casbin)
//
// The model is a plain ACL with role inheritance and exact object matching.
// The embedded policy grants the admin role three permissions: reading raw
// cache keys, bulk-deleting sessions, and reading the admin info page. The
// configured admin role is mapped onto admin with a grouping rule, and when
// authentication is disabled the anonymous subject is mapped too so the
// routes stay reachable.
//
//	enforcer, err := authz.NewEnforcer(authz.Config{AdminRole: cfg.Security.AdminRole})
//	if err != nil {
//	    return err
//	}
//	gate := authz.NewMiddleware(enforcer, nil)
//	r.With(gate.Authorize(authz.ObjectCache, authz.ActionRead)).Get("/redis/{key}", h)
package authz
