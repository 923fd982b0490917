// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/config"
	"github.com/tomtom215/oteapi-services/internal/dispatch"
	"github.com/tomtom215/oteapi-services/internal/registry"
	"github.com/tomtom215/oteapi-services/internal/session"
	"github.com/tomtom215/oteapi-services/internal/strategy"
	"github.com/tomtom215/oteapi-services/internal/strategy/builtin"
)

const (
	testPrefix = "/api/v1"
	testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"
)

type testServer struct {
	handler http.Handler
	cache   *cache.Manager
	prefix  string
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Prefix:            testPrefix,
			APIName:           "oteapi_services",
			IncludeRedisAdmin: true,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
		},
		Security: config.SecurityConfig{
			AuthMode:  "none",
			AdminRole: "admin",
		},
	}
}

// newTestServer wires the full stack on an in-memory cache.
func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	m := cache.NewManager(cache.Config{Type: cache.TypeMemory})
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("cache Init() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Terminate() })

	sessions := session.NewStore(m)
	resources := registry.New(m, sessions)
	strategies := strategy.NewRegistry()
	if err := builtin.Register(strategies, builtin.Deps{Cache: m}); err != nil {
		t.Fatalf("builtin.Register() error = %v", err)
	}

	h := NewHandler(Deps{
		Cache:      m,
		Sessions:   sessions,
		Resources:  resources,
		Dispatcher: dispatch.New(resources, sessions, strategies),
		Strategies: strategies,
		Version:    "test",
		APIName:    cfg.Server.APIName,
		AuthMode:   cfg.Security.AuthMode,
	})
	router, err := NewRouter(cfg, h)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return &testServer{handler: router.Setup(), cache: m, prefix: cfg.Server.Prefix}
}

type call struct {
	method string
	path   string
	body   interface{}
	header map[string]string
}

// do sends c and decodes a JSON response body into a generic map when
// there is one.
func (s *testServer) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := c.body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(c.method, c.path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %s: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

// mustCreate posts body to path and returns the id under key.
func (s *testServer) mustCreate(t *testing.T, path string, body interface{}, key string) string {
	t.Helper()
	rec, out := s.do(t, call{method: http.MethodPost, path: s.prefix + path, body: body})
	wantStatus(t, rec, http.StatusOK)
	id, ok := out[key].(string)
	if !ok {
		t.Fatalf("response %v has no %s", out, key)
	}
	return id
}

// wantStatus stops the test when rec does not carry code.
func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("status = %d, want %d: %s", rec.Code, code, rec.Body.String())
	}
}

// wantField reports a mismatch of one decoded response field.
func wantField(t *testing.T, out map[string]interface{}, key string, want interface{}) {
	t.Helper()
	if got := out[key]; !reflect.DeepEqual(got, want) {
		t.Errorf("%s = %#v, want %#v", key, got, want)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, out map[string]interface{}) string {
	t.Helper()
	if out["success"] != false {
		t.Fatalf("success = %v in error response %v", out["success"], out)
	}
	e, ok := out["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("no error object in %v", out)
	}
	code, _ := e["code"].(string)
	return code
}
