// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package builtin

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// Package is the package name reported for every built-in strategy.
const Package = "oteapi-services/builtin"

const (
	defaultHTTPTimeout      = 30 * time.Second
	defaultMaxDownloadBytes = 64 << 20
	defaultDownloadRate     = 10
	defaultDownloadBurst    = 10
)

// Deps are the shared handles the built-in strategies are constructed with.
type Deps struct {
	// Cache holds downloaded content under data-<uuid> keys. Required.
	Cache cache.Store

	// HTTPClient fetches http and https downloads. Defaults to a client
	// with a 30s timeout.
	HTTPClient *http.Client

	// DownloadRate and DownloadBurst throttle outgoing downloads across
	// all resources. A zero rate uses the default of 10 per second.
	DownloadRate  rate.Limit
	DownloadBurst int

	// MaxDownloadBytes caps the size of a single download.
	MaxDownloadBytes int64

	// FileRoot confines file:// downloads to this directory. When empty the
	// download/file strategy is not registered.
	FileRoot string

	Breaker BreakerSettings
}

// env is the resolved runtime shared by the strategy factories.
type env struct {
	cache    cache.Store
	client   *http.Client
	limiter  *rate.Limiter
	breakers *breakers
	maxBytes int64
	fileRoot string
	registry *strategy.Registry
}

func newEnv(reg *strategy.Registry, deps Deps) (*env, error) {
	if deps.Cache == nil {
		return nil, errors.New("builtin strategies need a cache")
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	limit := deps.DownloadRate
	if limit == 0 {
		limit = defaultDownloadRate
	}
	burst := deps.DownloadBurst
	if burst <= 0 {
		burst = defaultDownloadBurst
	}
	maxBytes := deps.MaxDownloadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDownloadBytes
	}
	settings := deps.Breaker
	if settings == (BreakerSettings{}) {
		settings = DefaultBreakerSettings()
	}
	return &env{
		cache:    deps.Cache,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		breakers: newBreakers(settings),
		maxBytes: maxBytes,
		fileRoot: deps.FileRoot,
		registry: reg,
	}, nil
}

// entry is one line of the built-in manifest.
type entry struct {
	typ     strategy.Type
	name    string
	factory strategy.Factory
}

// Register adds every built-in strategy to reg. download/file is only
// registered when Deps.FileRoot is set.
func Register(reg *strategy.Registry, deps Deps) error {
	e, err := newEnv(reg, deps)
	if err != nil {
		return err
	}

	manifest := []entry{
		{strategy.TypeDownload, "https", e.newHTTPDownload},
		{strategy.TypeDownload, "http", e.newHTTPDownload},
		{strategy.TypeParse, MediaTypeJSON, e.newJSONParse},
		{strategy.TypeParse, MediaTypeCSV, e.newCSVParse},
		{strategy.TypeParse, MediaTypeYAML, e.newYAMLParse},
		{strategy.TypeParse, "parser/demo", e.newDemoParser},
		{strategy.TypeResource, "resource/demo", newDemoResource},
		{strategy.TypeFilter, "filter/demo", newDemoFilter},
		{strategy.TypeFunction, "function/demo", newEmpty},
		{strategy.TypeMapping, "mapping/demo", newEmpty},
		{strategy.TypeTransformation, "script/demo", newDemoTransformation},
		{strategy.TypeTripleStore, TripleStoreSPARQL, e.newTripleStore},
	}
	if e.fileRoot != "" {
		manifest = append(manifest, entry{strategy.TypeDownload, "file", e.newFileDownload})
	}
	for _, m := range manifest {
		if err := reg.Register(m.typ, m.name, Package, m.factory); err != nil {
			return err
		}
	}
	return nil
}
