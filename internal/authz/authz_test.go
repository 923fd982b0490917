// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/oteapi-services/internal/auth"
)

func TestEnforceWithRoles(t *testing.T) {
	e, err := NewEnforcer(Config{AdminRole: "operator"})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	tests := []struct {
		name    string
		subject string
		roles   []string
		object  string
		action  string
		want    bool
	}{
		{"admin reads cache", "alice", []string{auth.RoleAdmin}, ObjectCache, ActionRead, true},
		{"mapped role reads cache", "bob", []string{"operator"}, ObjectCache, ActionRead, true},
		{"admin bulk delete", "alice", []string{auth.RoleAdmin}, ObjectSessions, ActionDelete, true},
		{"user denied", "carol", []string{auth.RoleUser}, ObjectCache, ActionRead, false},
		{"anonymous denied", auth.RoleAnonymous, []string{auth.RoleAnonymous}, ObjectAdminInfo, ActionRead, false},
		{"admin wrong action", "alice", []string{auth.RoleAdmin}, ObjectCache, ActionWrite, false},
		{"no roles", "dave", nil, ObjectSessions, ActionDelete, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EnforceWithRoles(tt.subject, tt.roles, tt.object, tt.action)
			if err != nil {
				t.Fatalf("EnforceWithRoles() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EnforceWithRoles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowAnonymous(t *testing.T) {
	e, err := NewEnforcer(Config{AllowAnonymous: true})
	if err != nil {
		t.Fatal(err)
	}
	sub := auth.Anonymous()
	allowed, err := e.EnforceWithRoles(sub.ID, sub.Roles, ObjectCache, ActionRead)
	if err != nil || !allowed {
		t.Errorf("anonymous with AllowAnonymous = %v, %v; want allowed", allowed, err)
	}
}

func TestGetPolicy(t *testing.T) {
	e, _ := NewEnforcer(Config{})
	if got := len(e.GetPolicy()); got != 3 {
		t.Errorf("GetPolicy() returned %d rules, want 3", got)
	}
}

func TestAuthorizeMiddleware(t *testing.T) {
	e, _ := NewEnforcer(Config{})
	var codes []string
	m := NewMiddleware(e, func(w http.ResponseWriter, _ *http.Request, status int, code, _ string) {
		codes = append(codes, code)
		w.WriteHeader(status)
	})
	h := m.Authorize(ObjectCache, ActionRead)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		subject *auth.AuthSubject
		want    int
	}{
		{"admin", &auth.AuthSubject{ID: "alice", Roles: []string{auth.RoleAdmin}}, http.StatusNoContent},
		{"user", &auth.AuthSubject{ID: "bob", Roles: []string{auth.RoleUser}}, http.StatusForbidden},
		{"no subject", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/redis/session-1", nil)
			if tt.subject != nil {
				req = req.WithContext(auth.ContextWithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if len(codes) != 2 || codes[0] != "FORBIDDEN" {
		t.Errorf("deny codes = %v", codes)
	}
}
