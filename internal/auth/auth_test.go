// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/oteapi-services/internal/config"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

func TestNewJWTManager(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.SecurityConfig
		wantErr bool
	}{
		{"valid secret", &config.SecurityConfig{JWTSecret: testSecret, TokenTTL: time.Hour}, false},
		{"zero ttl uses default", &config.SecurityConfig{JWTSecret: testSecret}, false},
		{"empty secret", &config.SecurityConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, err := NewJWTManager(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewJWTManager() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJWTManager() unexpected error = %v", err)
			}
			if manager.timeout <= 0 {
				t.Errorf("timeout = %v, want positive", manager.timeout)
			}
		})
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, TokenTTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	token, err := m.GenerateToken("alice", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "alice" || claims.Role != RoleAdmin {
		t.Errorf("claims = %s/%s, want alice/admin", claims.Username, claims.Role)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	other, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("x", 40)})

	foreign, _ := other.GenerateToken("mallory", RoleAdmin)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "eve"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"wrong secret": foreign,
		"expired":      expiredToken,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ValidateToken(token); err == nil {
				t.Error("ValidateToken() expected error, got nil")
			}
		})
	}
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestBasicAuthManager(t *testing.T) {
	m, err := newBasicAuthManager("admin", "correct-horse-battery", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("newBasicAuthManager() error = %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"valid", basicHeader("admin", "correct-horse-battery"), false},
		{"wrong password", basicHeader("admin", "nope"), true},
		{"wrong user", basicHeader("root", "correct-horse-battery"), true},
		{"bearer header", "Bearer abc", true},
		{"bad base64", "Basic !!!", true},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("admin")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := m.ValidateCredentials(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Error("ValidateCredentials() expected error")
				}
				return
			}
			if err != nil || user != "admin" {
				t.Errorf("ValidateCredentials() = %q, %v", user, err)
			}
		})
	}

	if _, err := NewBasicAuthManager("", "x"); err == nil {
		t.Error("empty username should be rejected")
	}
}

func TestParseAuthMode(t *testing.T) {
	for in, want := range map[string]AuthMode{"": AuthModeNone, "none": AuthModeNone, "jwt": AuthModeJWT, "basic": AuthModeBasic} {
		got, err := ParseAuthMode(in)
		if err != nil || got != want {
			t.Errorf("ParseAuthMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseAuthMode("oidc"); err == nil {
		t.Error("ParseAuthMode(oidc) expected error")
	}
}

// subjectEcho writes the authenticated subject's id and first role.
var subjectEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	s := SubjectFromContext(r.Context())
	if s == nil {
		http.Error(w, "no subject", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(s.ID + "/" + s.Roles[0]))
})

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareNone(t *testing.T) {
	mw, err := NewMiddleware(&config.SecurityConfig{AuthMode: "none"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := serve(mw.Authenticate(subjectEcho), "")
	if rec.Code != http.StatusOK || rec.Body.String() != "anonymous/anonymous" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMiddlewareJWT(t *testing.T) {
	cfg := &config.SecurityConfig{AuthMode: "jwt", JWTSecret: testSecret}
	var denied []string
	mw, err := NewMiddleware(cfg, func(w http.ResponseWriter, _ *http.Request, status int, code, _ string) {
		denied = append(denied, code)
		w.WriteHeader(status)
	})
	if err != nil {
		t.Fatal(err)
	}
	h := mw.Authenticate(subjectEcho)

	jm, _ := NewJWTManager(cfg)
	token, _ := jm.GenerateToken("alice", RoleAdmin)

	if rec := serve(h, "Bearer "+token); rec.Code != http.StatusOK || rec.Body.String() != "alice/admin" {
		t.Errorf("valid token: got %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(h, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: got %d, want 401", rec.Code)
	}
	if rec := serve(h, "Token "+token); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong scheme: got %d, want 401", rec.Code)
	}
	if len(denied) != 2 || denied[0] != "UNAUTHORIZED" {
		t.Errorf("deny calls = %v", denied)
	}
}

func TestMiddlewareBasic(t *testing.T) {
	cfg := &config.SecurityConfig{AuthMode: "basic", AdminUsername: "admin", AdminPassword: "correct-horse-battery"}
	mw, err := NewMiddleware(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := mw.Authenticate(subjectEcho)

	rec := serve(h, basicHeader("admin", "correct-horse-battery"))
	if rec.Code != http.StatusOK || rec.Body.String() != "admin/admin" {
		t.Errorf("valid credentials: got %d %q", rec.Code, rec.Body.String())
	}

	rec = serve(h, basicHeader("admin", "wrong"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d, want 401", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Basic ") {
		t.Errorf("missing challenge header")
	}
}

func TestNewMiddlewareErrors(t *testing.T) {
	if _, err := NewMiddleware(&config.SecurityConfig{AuthMode: "jwt"}, nil); err == nil {
		t.Error("jwt without secret should fail")
	}
	if _, err := NewMiddleware(&config.SecurityConfig{AuthMode: "plex"}, nil); err == nil {
		t.Error("unknown mode should fail")
	}
	_, err := NewMiddleware(&config.SecurityConfig{AuthMode: "basic"}, nil)
	if err == nil || errors.Is(err, ErrNoCredentials) {
		t.Errorf("basic without credentials: err = %v", err)
	}
}
