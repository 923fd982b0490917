// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package authz

import (
	"net/http"

	"github.com/tomtom215/oteapi-services/internal/auth"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
)

// Middleware gates routes on the enforcer's decision.
type Middleware struct {
	enforcer *Enforcer
	secLog   *logging.SecurityLogger
	deny     auth.DenyFunc
}

// NewMiddleware creates a new authorization middleware. deny renders the
// 403 and 500 responses; nil falls back to http.Error.
func NewMiddleware(enforcer *Enforcer, deny auth.DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{
		enforcer: enforcer,
		secLog:   logging.NewSecurityLogger(),
		deny:     deny,
	}
}

// Authorize returns chi-style middleware enforcing object/action. The
// authentication middleware must run first.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				m.deny(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden: no authentication context")
				return
			}

			allowed, err := m.enforcer.EnforceWithRoles(subject.ID, subject.Roles, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Str("object", object).Msg("Authorization error")
				m.deny(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}
			metrics.RecordAuthzDecision(object, action, allowed)

			if !allowed {
				m.secLog.LogAccessDenied(subject.ID, r.Method, r.URL.Path, r.RemoteAddr)
				m.deny(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden: insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
