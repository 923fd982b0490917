// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an authentication or authorization decision.
type SecurityEvent struct {
	// Event is the type of event, e.g. "auth_success", "access_denied".
	Event string
	// Subject is the authenticated principal, if known.
	Subject string
	// Provider is the authentication mode (jwt, basic).
	Provider string
	// Path and Method identify the request.
	Path   string
	Method string
	// IPAddress is the client's address.
	IPAddress string
	Success   bool
	// Error is the failure reason. It is sanitized before logging.
	Error string
	// Details holds extra fields. Values are sanitized by key name.
	Details map[string]string
}

// SecurityLogger logs authentication events with credentials masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return NewSecurityLoggerWithLogger(Logger())
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent logs a security event. Failures are logged at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	status := "success"
	if !event.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("event", event.Event).Str("status", status)

	if event.Subject != "" {
		e = e.Str("subject", SanitizeUsername(event.Subject))
	}
	if event.Provider != "" {
		e = e.Str("provider", event.Provider)
	}
	if event.Method != "" {
		e = e.Str("method", event.Method)
	}
	if event.Path != "" {
		e = e.Str("path", event.Path)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.Error != "" && !event.Success {
		e = e.Str("reason", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogAuthSuccess logs an accepted credential.
func (l *SecurityLogger) LogAuthSuccess(subject, provider, method, path, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "auth_success",
		Subject:   subject,
		Provider:  provider,
		Method:    method,
		Path:      path,
		IPAddress: ip,
		Success:   true,
	})
}

// LogAuthFailure logs a rejected or missing credential.
func (l *SecurityLogger) LogAuthFailure(provider, method, path, ip, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "auth_failed",
		Provider:  provider,
		Method:    method,
		Path:      path,
		IPAddress: ip,
		Error:     reason,
	})
}

// LogAccessDenied logs an authenticated subject that the policy rejected.
func (l *SecurityLogger) LogAccessDenied(subject, method, path, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "access_denied",
		Subject:   subject,
		Method:    method,
		Path:      path,
		IPAddress: ip,
		Error:     "policy denied",
	})
}

// SanitizeToken masks a token, showing only the first and last 4 characters.
// Example: "eyJhbGciOiJIUzI1NiJ9" -> "eyJh...NiJ9"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername keeps the first 2 characters.
// Example: "johndoe" -> "jo***"
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeError replaces messages that may quote a credential with a
// generic one and truncates the rest.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"password", "secret", "bearer", "authorization", "signature"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// SanitizeValue masks value when key names a credential.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "token", "access_token", "password", "secret", "api_key", "authorization", "bearer":
		return SanitizeToken(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
