// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package builtin

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// TripleStoreSPARQL is the default triplestore strategy: the SPARQL 1.1
// protocol over HTTP, as served by AllegroGraph repositories.
const TripleStoreSPARQL = "sparql"

// Triplestore configuration fields.
const (
	fieldRepository = "repositoryName"
	fieldHost       = "agraphHost"
	fieldPort       = "agraphPort"
	fieldUser       = "user"
	fieldPassword   = "password"
)

const sparqlResultsJSON = "application/sparql-results+json"

// sparqlResults is the SPARQL 1.1 JSON results format. Boolean is only set
// for ASK queries.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

type sparqlTerm struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// tripleStore posts sparql_query to <agraphHost>[:agraphPort]/repositories/<repositoryName>.
type tripleStore struct {
	env *env
	cfg models.ResourceConfig
}

func (e *env) newTripleStore(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &tripleStore{env: e, cfg: cfg}, nil
}

func (t *tripleStore) Initialize(context.Context) (models.Document, error) {
	return models.Document{}, nil
}

// Get runs the query and returns every projected variable with the values
// bound to it, in result order. Rows leaving a variable unbound are skipped
// for that variable. An ASK query returns {"boolean": ...}.
func (t *tripleStore) Get(ctx context.Context) (models.Document, error) {
	query := t.cfg.Get(models.FieldSPARQLQuery)
	if query == "" {
		return nil, t.unprocessable("sparql_query is required")
	}
	endpoint, err := t.endpoint()
	if err != nil {
		return nil, err
	}

	if err := t.env.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("query throttled: %w", err)
	}
	body, err := t.env.breakers.execute(endpoint.Host, func() ([]byte, error) {
		return t.post(ctx, endpoint, query)
	})
	if err != nil {
		return nil, err
	}

	var res sparqlResults
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode SPARQL results from %s: %w", endpoint.Redacted(), err)
	}
	logging.Ctx(ctx).Debug().
		Str("endpoint", endpoint.Redacted()).
		Int("vars", len(res.Head.Vars)).
		Int("rows", len(res.Results.Bindings)).
		Msg("Triplestore query finished")
	return bindings(res), nil
}

func (t *tripleStore) post(ctx context.Context, endpoint *url.URL, query string) ([]byte, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", sparqlResultsJSON)
	if user := t.cfg.Get(fieldUser); user != "" {
		req.SetBasicAuth(user, t.cfg.Get(fieldPassword))
	} else if token := t.cfg.Token(); token != "" {
		if !strings.Contains(token, " ") {
			token = "Bearer " + token
		}
		req.Header.Set("Authorization", token)
	}

	resp, err := t.env.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{Method: http.MethodPost, Code: resp.StatusCode, URL: endpoint.Redacted()}
	}
	return readLimited(resp.Body, t.env.maxBytes)
}

// endpoint builds the repository URL. agraphHost may carry a scheme and a
// path prefix; plain host names default to http.
func (t *tripleStore) endpoint() (*url.URL, error) {
	host, repo := t.cfg.Get(fieldHost), t.cfg.Get(fieldRepository)
	if host == "" || repo == "" {
		return nil, t.unprocessable("triplestore config requires agraphHost and repositoryName")
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Hostname() == "" {
		return nil, t.unprocessable("invalid agraphHost %q", t.cfg.Get(fieldHost))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, t.unprocessable("agraphHost scheme %q is not supported", u.Scheme)
	}
	if port := portString(t.cfg.Doc[fieldPort]); port != "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/repositories/" + repo
	u.RawPath = ""
	u.RawQuery, u.Fragment = "", ""
	return u, nil
}

func (t *tripleStore) unprocessable(format string, args ...any) error {
	return models.Unprocessable(t.cfg.Category.IDField(), t.cfg.ID, format, args...)
}

// portString accepts the port as a JSON number or a string.
func portString(v any) string {
	switch p := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	case string:
		return p
	default:
		return fmt.Sprint(p)
	}
}

func bindings(res sparqlResults) models.Document {
	if res.Boolean != nil {
		return models.Document{"boolean": *res.Boolean}
	}
	out := make(models.Document, len(res.Head.Vars))
	for _, v := range res.Head.Vars {
		values := []any{}
		for _, row := range res.Results.Bindings {
			if term, ok := row[v]; ok {
				values = append(values, term.Value)
			}
		}
		out[v] = values
	}
	return out
}
