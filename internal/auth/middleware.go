// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/oteapi-services/internal/config"
	"github.com/tomtom215/oteapi-services/internal/logging"
)

// DenyFunc writes an authentication failure. The API layer supplies one that
// renders its error envelope.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, code, message string)

func plainDeny(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
	http.Error(w, message, status)
}

// Middleware applies the configured authentication dependency to every
// request it wraps.
type Middleware struct {
	mode   AuthMode
	jwt    *JWTManager
	basic  *BasicAuthManager
	secLog *logging.SecurityLogger
	deny   DenyFunc

	// adminUsername gets RoleAdmin under basic auth; there is only one
	// credential today, so this is that user.
	adminUsername string
}

// NewMiddleware builds the middleware for cfg.AuthMode.
func NewMiddleware(cfg *config.SecurityConfig, deny DenyFunc) (*Middleware, error) {
	mode, err := ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	if deny == nil {
		deny = plainDeny
	}
	m := &Middleware{
		mode:          mode,
		secLog:        logging.NewSecurityLogger(),
		deny:          deny,
		adminUsername: cfg.AdminUsername,
	}

	switch mode {
	case AuthModeJWT:
		if m.jwt, err = NewJWTManager(cfg); err != nil {
			return nil, fmt.Errorf("jwt auth: %w", err)
		}
	case AuthModeBasic:
		if m.basic, err = NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("basic auth: %w", err)
		}
	}
	return m, nil
}

// Mode returns the active authentication mode.
func (m *Middleware) Mode() AuthMode {
	return m.mode
}

// Authenticate rejects requests without valid credentials and stores the
// subject in the request context. With mode none every request passes as
// the anonymous subject.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			subject *AuthSubject
			err     error
		)
		switch m.mode {
		case AuthModeBasic:
			subject, err = m.authenticateBasic(r)
		case AuthModeJWT:
			subject, err = m.authenticateJWT(r)
		default:
			subject = Anonymous()
		}

		if err != nil {
			m.secLog.LogAuthFailure(m.mode.String(), r.Method, r.URL.Path, r.RemoteAddr, err.Error())
			if m.mode == AuthModeBasic {
				w.Header().Set("WWW-Authenticate", m.basic.WWWAuthenticate())
			}
			m.deny(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: "+err.Error())
			return
		}
		if m.mode != AuthModeNone {
			m.secLog.LogAuthSuccess(subject.ID, m.mode.String(), r.Method, r.URL.Path, r.RemoteAddr)
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

func (m *Middleware) authenticateBasic(r *http.Request) (*AuthSubject, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrNoCredentials
	}
	username, err := m.basic.ValidateCredentials(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	role := RoleUser
	if username == m.adminUsername {
		role = RoleAdmin
	}
	return &AuthSubject{ID: username, Username: username, Roles: []string{role}, AuthMethod: AuthModeBasic}, nil
}

func (m *Middleware) authenticateJWT(r *http.Request) (*AuthSubject, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrNoCredentials
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, fmt.Errorf("%w: expected a Bearer token", ErrInvalidCredentials)
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return AuthSubjectFromClaims(claims), nil
}
