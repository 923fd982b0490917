// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/dispatch"
	"github.com/tomtom215/oteapi-services/internal/middleware"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/registry"
	"github.com/tomtom215/oteapi-services/internal/session"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// Deps are the components the handlers call into.
type Deps struct {
	Cache      *cache.Manager
	Sessions   *session.Store
	Resources  *registry.Registry
	Dispatcher *dispatch.Dispatcher
	Strategies *strategy.Registry

	// Version and APIName are reported by the info endpoints.
	Version string
	APIName string
	// AuthMode is reported by the admin info endpoint.
	AuthMode string
}

// Handler serves every API route.
type Handler struct {
	cache      *cache.Manager
	sessions   *session.Store
	resources  *registry.Registry
	dispatcher *dispatch.Dispatcher
	strategies *strategy.Registry

	version   string
	apiName   string
	authMode  string
	monitor   *middleware.PerformanceMonitor
	startTime time.Time

	// routes is filled by the router once every route is mounted.
	routes []RouteInfo
}

// NewHandler creates the handler set.
func NewHandler(d Deps) *Handler {
	return &Handler{
		cache:      d.Cache,
		sessions:   d.Sessions,
		resources:  d.Resources,
		dispatcher: d.Dispatcher,
		strategies: d.Strategies,
		version:    d.Version,
		apiName:    d.APIName,
		authMode:   d.AuthMode,
		monitor:    middleware.NewPerformanceMonitor(1000, time.Second),
		startTime:  time.Now(),
	}
}

// readDocument decodes a JSON object body. An empty body is an empty
// document unless required is set.
func readDocument(w http.ResponseWriter, r *http.Request, required bool) (models.Document, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, models.Invalid("body", "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, models.Invalid("body", "request body could not be read")
	}
	if len(data) == 0 {
		if required {
			return nil, models.Invalid("body", "request body is required")
		}
		return models.Document{}, nil
	}
	doc, err := models.DecodeDocument(data)
	if err != nil {
		return nil, models.Invalid("body", "request body must be a JSON object")
	}
	return doc, nil
}
