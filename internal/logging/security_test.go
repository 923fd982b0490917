// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSecurityLoggerAuthFailure(t *testing.T) {
	var buf bytes.Buffer
	l := NewSecurityLoggerWithLogger(newTestLogger(&buf))

	l.LogAuthFailure("jwt", "DELETE", "/api/v1/session", "10.0.0.1", "token signature is invalid")

	output := buf.String()
	for _, want := range []string{
		`"component":"auth"`,
		`"event":"auth_failed"`,
		`"status":"failed"`,
		`"level":"warn"`,
		`"reason":"authentication error"`,
		`"path":"/api/v1/session"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSecurityLoggerMasksSubjectAndDetails(t *testing.T) {
	var buf bytes.Buffer
	l := NewSecurityLoggerWithLogger(newTestLogger(&buf))

	l.LogEvent(&SecurityEvent{
		Event:   "auth_success",
		Subject: "administrator",
		Success: true,
		Details: map[string]string{"token": "eyJhbGciOiJIUzI1NiJ9", "role": "admin"},
	})

	output := buf.String()
	if strings.Contains(output, "administrator") {
		t.Errorf("subject must be masked: %s", output)
	}
	if !strings.Contains(output, `"subject":"ad***"`) {
		t.Errorf("expected masked subject: %s", output)
	}
	if !strings.Contains(output, `"token":"eyJh...NiJ9"`) {
		t.Errorf("expected masked token: %s", output)
	}
	if !strings.Contains(output, `"role":"admin"`) {
		t.Errorf("non-sensitive detail must pass through: %s", output)
	}
}

func TestSanitizers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"short token", SanitizeToken("abc"), "***"},
		{"empty token", SanitizeToken(""), ""},
		{"long token", SanitizeToken("abcdefghijklmnop"), "abcd...mnop"},
		{"username", SanitizeUsername("johndoe"), "jo***"},
		{"short username", SanitizeUsername("jo"), "***"},
		{"plain error", SanitizeError("session not found"), "session not found"},
		{"secret error", SanitizeError("bad Password for user"), "authentication error"},
		{"sensitive key", SanitizeValue("Authorization", "Bearer abcdefghijklmnop"), "Bear...mnop"},
		{"plain key", SanitizeValue("role", "editor"), "editor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSanitizeErrorTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 300)
	got := SanitizeError(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 200 chars plus ellipsis, got %d", len(got))
	}
}
