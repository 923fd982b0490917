// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/middleware"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// RouteInfo is one mounted route.
type RouteInfo struct {
	Method string `json:"method"`
	Route  string `json:"route"`
}

// ServiceInfo is the body of GET /info.
type ServiceInfo struct {
	APIName              string                            `json:"api_name"`
	Version              string                            `json:"version"`
	RegisteredStrategies map[strategy.Type][]strategy.Info `json:"registered_strategies"`
	PluginPackages       []string                          `json:"installed_plugin_packages"`
	Cache                cache.Health                      `json:"cache"`
}

// AdminInfo is the body of GET /admin/info.
type AdminInfo struct {
	ServiceInfo
	AuthMode      string                     `json:"auth_mode"`
	GoVersion     string                     `json:"go_version"`
	Goroutines    int                        `json:"goroutines"`
	NumCPU        int                        `json:"num_cpu"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Routes        []RouteInfo                `json:"routes"`
	Requests      []middleware.EndpointStats `json:"requests"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string       `json:"status"`
	Cache  cache.Health `json:"cache"`
}

// Health reports liveness with a cache ping. A cache that does not answer
// turns the status into 503 so orchestrators can act on it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.cache.Health(r.Context())
	status, code := "healthy", http.StatusOK
	if !health.Pong {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthStatus{Status: status, Cache: health})
}

// Info reports the version, the registered strategies and the cache backend.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.serviceInfo(r))
}

// AdminInfo adds runtime details, mounted routes and recent request
// statistics to the service info.
func (h *Handler) AdminInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AdminInfo{
		ServiceInfo:   h.serviceInfo(r),
		AuthMode:      h.authMode,
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Routes:        h.routes,
		Requests:      h.monitor.Stats(),
	})
}

func (h *Handler) serviceInfo(r *http.Request) ServiceInfo {
	packages := h.strategies.Packages()
	if packages == nil {
		packages = []string{}
	}
	return ServiceInfo{
		APIName:              h.apiName,
		Version:              h.version,
		RegisteredStrategies: h.strategies.List(),
		PluginPackages:       packages,
		Cache:                h.cache.Health(r.Context()),
	}
}

// CacheKey returns the decoded value stored under a raw cache key. Values
// that are not JSON are returned as a JSON string.
func (h *Handler) CacheKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, err := h.cache.Get(r.Context(), key)
	if errors.Is(err, cache.ErrNotFound) {
		respondErr(w, r, models.NotFound("key", key))
		return
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		value = string(data)
	}
	writeJSON(w, http.StatusOK, value)
}
