// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package auth

import (
	"context"
	"errors"
)

// AuthMode represents the authentication dependency applied to API routes.
type AuthMode string

const (
	// AuthModeNone disables authentication
	AuthModeNone AuthMode = "none"

	// AuthModeBasic uses HTTP Basic Authentication
	AuthModeBasic AuthMode = "basic"

	// AuthModeJWT uses JWT Bearer tokens
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "none", "":
		return AuthModeNone, nil
	case "basic":
		return AuthModeBasic, nil
	case "jwt":
		return AuthModeJWT, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// String returns the string representation of AuthMode.
func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Role names used by the authorization policy.
const (
	RoleAdmin     = "admin"
	RoleAnonymous = "anonymous"
	RoleUser      = "user"
)

// AuthSubject is the authenticated caller of a request.
type AuthSubject struct {
	// ID is the JWT subject or the basic auth username.
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`

	// AuthMethod indicates how the subject was authenticated.
	AuthMethod AuthMode `json:"auth_method"`
}

// Anonymous is the subject of requests when authentication is disabled.
func Anonymous() *AuthSubject {
	return &AuthSubject{ID: RoleAnonymous, Username: RoleAnonymous, Roles: []string{RoleAnonymous}, AuthMethod: AuthModeNone}
}

// AuthSubjectFromClaims creates an AuthSubject from validated JWT claims.
func AuthSubjectFromClaims(claims *Claims) *AuthSubject {
	if claims == nil {
		return nil
	}
	id := claims.Subject
	if id == "" {
		id = claims.Username
	}
	subject := &AuthSubject{
		ID:         id,
		Username:   claims.Username,
		AuthMethod: AuthModeJWT,
	}
	if claims.Role != "" {
		subject.Roles = []string{claims.Role}
	}
	return subject
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// ContextWithSubject stores the authenticated subject.
func ContextWithSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the subject stored by the middleware, or nil.
func SubjectFromContext(ctx context.Context) *AuthSubject {
	s, _ := ctx.Value(subjectContextKey).(*AuthSubject)
	return s
}
