// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tomtom215/oteapi-services/internal/config"
)

func TestFilterSessionRoundTrip(t *testing.T) {
	s := newTestServer(t)

	sessionID := s.mustCreate(t, "/session", map[string]interface{}{"foo": "bar"}, "session_id")
	filterID := s.mustCreate(t, "/filter?session_id="+sessionID, map[string]interface{}{
		"filterType":    "filter/demo",
		"configuration": map[string]interface{}{"demo_data": []int{1, 2}},
	}, "filter_id")
	if !strings.HasPrefix(filterID, "filter-") {
		t.Errorf("filter id = %q, want filter- prefix", filterID)
	}

	rec, doc := s.do(t, call{method: http.MethodGet, path: testPrefix + "/session/" + sessionID})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, doc, "filter_info", []interface{}{filterID})
	wantField(t, doc, "foo", "bar")

	rec, result := s.do(t, call{method: http.MethodGet, path: testPrefix + "/filter/" + filterID + "?session_id=" + sessionID})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, result, "key", []interface{}{1.0, 2.0})

	// The strategy result is merged into the session.
	_, doc = s.do(t, call{method: http.MethodGet, path: testPrefix + "/session/" + sessionID})
	wantField(t, doc, "key", []interface{}{1.0, 2.0})
	wantField(t, doc, "foo", "bar")
}

func TestFilterListAccumulates(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.mustCreate(t, "/session", nil, "session_id")

	body := map[string]interface{}{"filterType": "filter/demo"}
	first := s.mustCreate(t, "/filter?session_id="+sessionID, body, "filter_id")
	second := s.mustCreate(t, "/filter?session_id="+sessionID, body, "filter_id")

	_, doc := s.do(t, call{method: http.MethodGet, path: testPrefix + "/session/" + sessionID})
	wantField(t, doc, "filter_info", []interface{}{first, second})
}

func TestCreateErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing session",
			path:     "/filter?session_id=session-00000000-0000-0000-0000-000000000000",
			body:     map[string]interface{}{"filterType": "filter/demo"},
			wantCode: http.StatusNotFound,
			wantErr:  ErrCodeNotFound,
		},
		{
			name:     "missing discriminator",
			path:     "/filter",
			body:     map[string]interface{}{"configuration": map[string]interface{}{}},
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeValidationFailed,
		},
		{
			name:     "body is not an object",
			path:     "/mapping",
			body:     "[1, 2]",
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeValidationFailed,
		},
		{
			name:     "empty body",
			path:     "/function",
			body:     nil,
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeValidationFailed,
		},
		{
			name:     "malformed url",
			path:     "/dataresource",
			body:     map[string]interface{}{"downloadUrl": "not a url", "mediaType": "application/json"},
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeValidationFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.do(t, call{method: http.MethodPost, path: testPrefix + tt.path, body: tt.body})
			wantStatus(t, rec, tt.wantCode)
			if code := errorCode(t, out); code != tt.wantErr {
				t.Errorf("error code = %q, want %q", code, tt.wantErr)
			}
		})
	}
}

func TestMissingSessionLeavesNoResource(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, call{
		method: http.MethodPost,
		path:   testPrefix + "/filter?session_id=session-missing",
		body:   map[string]interface{}{"filterType": "filter/demo"},
	})
	wantStatus(t, rec, http.StatusNotFound)

	keys, err := s.cache.Keys(t.Context(), "filter-")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("orphaned filters = %v", keys)
	}
}

func TestGetResourceErrors(t *testing.T) {
	s := newTestServer(t)
	unknown := s.mustCreate(t, "/filter", map[string]interface{}{"filterType": "filter/unknown"}, "filter_id")
	bareResource := s.mustCreate(t, "/dataresource", map[string]interface{}{}, "resource_id")
	noDemoData := s.mustCreate(t, "/filter", map[string]interface{}{"filterType": "filter/demo"}, "filter_id")

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{"unknown id", "/filter/filter-does-not-exist", http.StatusNotFound, ErrCodeNotFound},
		{"wrong category prefix", "/mapping/" + unknown, http.StatusNotFound, ErrCodeNotFound},
		{"unregistered strategy", "/filter/" + unknown, http.StatusUnprocessableEntity, ErrCodeUnprocessable},
		{"dataresource without source", "/dataresource/" + bareResource, http.StatusUnprocessableEntity, ErrCodeUnprocessable},
		{"strategy rejects configuration", "/filter/" + noDemoData, http.StatusUnprocessableEntity, ErrCodeUnprocessable},
		{"missing session on get", "/filter/" + noDemoData + "?session_id=session-gone", http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.do(t, call{method: http.MethodGet, path: testPrefix + tt.path})
			wantStatus(t, rec, tt.wantCode)
			if code := errorCode(t, out); code != tt.wantErr {
				t.Errorf("error code = %q, want %q", code, tt.wantErr)
			}
		})
	}
}

func TestFileDownloadRefusedWithoutRoot(t *testing.T) {
	s := newTestServer(t)
	id := s.mustCreate(t, "/dataresource", map[string]interface{}{
		"downloadUrl": "file:///etc/passwd",
		"mediaType":   "text/csv",
	}, "resource_id")

	for _, path := range []string{"/dataresource/" + id, "/dataresource/" + id + "/initialize"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "/initialize") {
			method = http.MethodPost
		}
		rec, out := s.do(t, call{method: method, path: testPrefix + path})
		wantStatus(t, rec, http.StatusUnprocessableEntity)
		if code := errorCode(t, out); code != ErrCodeUnprocessable {
			t.Errorf("%s %s error code = %q, want %q", method, path, code, ErrCodeUnprocessable)
		}
		if strings.Contains(rec.Body.String(), "root:") {
			t.Errorf("%s %s leaked file contents: %s", method, path, rec.Body.String())
		}
	}

	keys, err := s.cache.Keys(t.Context(), "data-")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("cached downloads = %v, want none", keys)
	}
}

func TestErrorEnvelopeCarriesDetails(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, call{
		method: http.MethodGet,
		path:   testPrefix + "/filter/filter-nope",
		header: map[string]string{"X-Request-ID": "req-42"},
	})
	wantStatus(t, rec, http.StatusNotFound)

	e, ok := out["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("no error object in %v", out)
	}
	wantField(t, e, "request_id", "req-42")
	wantField(t, e, "details", map[string]interface{}{"field": "filter_id", "id": "filter-nope"})
	if msg, _ := e["message"].(string); !strings.Contains(msg, "not found") {
		t.Errorf("message = %q, want it to mention not found", msg)
	}
}

func TestInitializeResource(t *testing.T) {
	s := newTestServer(t)
	sessionID := s.mustCreate(t, "/session", nil, "session_id")
	filterID := s.mustCreate(t, "/filter", map[string]interface{}{"filterType": "filter/demo"}, "filter_id")

	rec, out := s.do(t, call{method: http.MethodPost, path: testPrefix + "/filter/" + filterID + "/initialize?session_id=" + sessionID})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, out, "result", "collectionid")

	_, doc := s.do(t, call{method: http.MethodGet, path: testPrefix + "/session/" + sessionID})
	wantField(t, doc, "result", "collectionid")
}

func TestTransformationExecuteAndStatus(t *testing.T) {
	s := newTestServer(t)
	id := s.mustCreate(t, "/transformation", map[string]interface{}{"transformationType": "script/demo"}, "transformation_id")

	rec, out := s.do(t, call{method: http.MethodPost, path: testPrefix + "/transformation/" + id + "/execute"})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, out, "result", "a01d")

	rec, out = s.do(t, call{method: http.MethodGet, path: testPrefix + "/transformation/" + id + "/status?task_id=task-1"})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, out, "id", "task-1")
	wantField(t, out, "status", "wip")

	rec, out = s.do(t, call{method: http.MethodGet, path: testPrefix + "/transformation/" + id + "/status"})
	wantStatus(t, rec, http.StatusBadRequest)
	if code := errorCode(t, out); code != ErrCodeValidationFailed {
		t.Errorf("error code = %q, want %q", code, ErrCodeValidationFailed)
	}
}

func TestResourceInfoAndTokenRule(t *testing.T) {
	s := newTestServer(t)

	fromHeader := "Bearer header-token"
	rec, out := s.do(t, call{
		method: http.MethodPost,
		path:   testPrefix + "/parser",
		body:   map[string]interface{}{"parserType": "parser/demo"},
		header: map[string]string{"Authorization": fromHeader},
	})
	wantStatus(t, rec, http.StatusOK)
	parserID, _ := out["parser_id"].(string)

	rec, info := s.do(t, call{method: http.MethodGet, path: testPrefix + "/parser/" + parserID + "/info"})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, info, "token", fromHeader)
	wantField(t, info, "parserType", "parser/demo")

	rec, out = s.do(t, call{
		method: http.MethodPost,
		path:   testPrefix + "/dataresource",
		body:   map[string]interface{}{"accessUrl": "https://example.org/a", "accessService": "demo", "token": "body-token"},
		header: map[string]string{"Authorization": fromHeader},
	})
	wantStatus(t, rec, http.StatusOK)
	resourceID, _ := out["resource_id"].(string)

	// The body token wins over the header.
	_, info = s.do(t, call{method: http.MethodGet, path: testPrefix + "/dataresource/" + resourceID + "/info"})
	wantField(t, info, "token", "body-token")
}

// sparqlEndpoint answers every query with body and reports the query text
// it received.
func sparqlEndpoint(t *testing.T, status int, body string) (*httptest.Server, <-chan string) {
	t.Helper()
	seen := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.PostFormValue("query")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestFetchTriples(t *testing.T) {
	srv, seen := sparqlEndpoint(t, http.StatusOK,
		`{"head": {"vars": ["s"]}, "results": {"bindings": [{"s": {"type": "uri", "value": "http://ex.org/a"}}]}}`)
	s := newTestServer(t)
	conf := map[string]interface{}{"agraphHost": srv.URL, "repositoryName": "demo"}

	const fromQuery = "SELECT ?s WHERE { ?s ?p ?o }"
	rec, out := s.do(t, call{
		method: http.MethodPost,
		path:   testPrefix + "/triples/fetch?sparql_query=" + url.QueryEscape(fromQuery),
		body:   conf,
	})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, out, "s", []interface{}{"http://ex.org/a"})
	if q := <-seen; q != fromQuery {
		t.Errorf("endpoint query = %q, want %q", q, fromQuery)
	}

	const fromBody = "SELECT ?s WHERE { ?s a ?type }"
	rec, _ = s.do(t, call{
		method: http.MethodPost,
		path:   testPrefix + "/triples/fetch",
		body:   map[string]interface{}{"agraphHost": srv.URL, "repositoryName": "demo", "sparql_query": fromBody},
	})
	wantStatus(t, rec, http.StatusOK)
	if q := <-seen; q != fromBody {
		t.Errorf("endpoint query = %q, want %q", q, fromBody)
	}
}

func TestFetchTriplesErrors(t *testing.T) {
	failing, _ := sparqlEndpoint(t, http.StatusInternalServerError, "MALFORMED QUERY")
	s := newTestServer(t)
	query := "?sparql_query=" + url.QueryEscape("ASK { ?s ?p ?o }")

	tests := []struct {
		name     string
		query    string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{"missing query", "", map[string]interface{}{"agraphHost": failing.URL, "repositoryName": "demo"},
			http.StatusBadRequest, ErrCodeValidationFailed},
		{"empty body", query, nil, http.StatusBadRequest, ErrCodeValidationFailed},
		{"missing host", query, map[string]interface{}{"repositoryName": "demo"},
			http.StatusUnprocessableEntity, ErrCodeUnprocessable},
		{"unknown strategy", query, map[string]interface{}{"agraphHost": failing.URL, "repositoryName": "demo", "triplestoreType": "nope"},
			http.StatusUnprocessableEntity, ErrCodeUnprocessable},
		{"upstream failure", query, map[string]interface{}{"agraphHost": failing.URL, "repositoryName": "demo"},
			http.StatusBadGateway, ErrCodeStrategyFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.do(t, call{method: http.MethodPost, path: testPrefix + "/triples/fetch" + tt.query, body: tt.body})
			wantStatus(t, rec, tt.wantCode)
			if code := errorCode(t, out); code != tt.wantErr {
				t.Errorf("error code = %q, want %q", code, tt.wantErr)
			}
		})
	}
}

func TestEmptyPrefixMountsAtRoot(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.Prefix = "" })

	for _, path := range []string{"/health", "/info", "/session"} {
		rec, _ := s.do(t, call{method: http.MethodGet, path: path})
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200: %s", path, rec.Code, rec.Body.String())
		}
	}

	id := s.mustCreate(t, "/session", map[string]interface{}{"a": 1}, "session_id")
	rec, doc := s.do(t, call{method: http.MethodGet, path: "/session/" + id})
	wantStatus(t, rec, http.StatusOK)
	wantField(t, doc, "a", 1.0)

	rec, _ = s.do(t, call{method: http.MethodGet, path: testPrefix + "/session"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("prefixed path status = %d, want 404", rec.Code)
	}

	_, out := s.do(t, call{method: http.MethodGet, path: "/admin/info"})
	routes := routeSet(t, out)
	for _, want := range []string{"GET /info", "POST /triples/fetch", "GET /health"} {
		if !routes[want] {
			t.Errorf("routes missing %q", want)
		}
	}
}

func TestTrailingSlashAccepted(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, call{method: http.MethodPost, path: testPrefix + "/session/", body: map[string]interface{}{}})
	wantStatus(t, rec, http.StatusOK)
	if _, ok := out["session_id"]; !ok {
		t.Errorf("response %v has no session_id", out)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, call{method: http.MethodGet, path: testPrefix + "/nothing-here"})
	wantStatus(t, rec, http.StatusNotFound)
	if code := errorCode(t, out); code != ErrCodeNotFound {
		t.Errorf("error code = %q, want %q", code, ErrCodeNotFound)
	}
}

// routeSet flattens the admin info route list into "METHOD path" keys.
func routeSet(t *testing.T, out map[string]interface{}) map[string]bool {
	t.Helper()
	list, ok := out["routes"].([]interface{})
	if !ok {
		t.Fatalf("no routes in %v", out)
	}
	set := make(map[string]bool, len(list))
	for _, r := range list {
		ri, _ := r.(map[string]interface{})
		set[ri["method"].(string)+" "+ri["route"].(string)] = true
	}
	return set
}
