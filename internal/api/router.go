// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/oteapi-services/internal/auth"
	"github.com/tomtom215/oteapi-services/internal/authz"
	"github.com/tomtom215/oteapi-services/internal/config"
	"github.com/tomtom215/oteapi-services/internal/middleware"
	"github.com/tomtom215/oteapi-services/internal/models"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler         *Handler
	server          *config.ServerConfig
	authn           *auth.Middleware
	authzMiddleware *authz.Middleware
	chiMiddleware   *ChiMiddleware
}

// NewRouter builds the authentication and authorization chain for cfg.
// With authentication disabled the anonymous subject is granted the admin
// policy so the admin routes behave as they do without any auth layer.
func NewRouter(cfg *config.Config, h *Handler) (*Router, error) {
	authn, err := auth.NewMiddleware(&cfg.Security, denyJSON)
	if err != nil {
		return nil, fmt.Errorf("authentication: %w", err)
	}
	enforcer, err := authz.NewEnforcer(authz.Config{
		AdminRole:      cfg.Security.AdminRole,
		AllowAnonymous: authn.Mode() == auth.AuthModeNone,
	})
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}

	return &Router{
		handler:         h,
		server:          &cfg.Server,
		authn:           authn,
		authzMiddleware: authz.NewMiddleware(enforcer, denyJSON),
		chiMiddleware:   NewChiMiddleware(ChiMiddlewareConfigFromServer(&cfg.Server)),
	}, nil
}

// Setup mounts every route and returns the root handler.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "No route for "+r.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	api := func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(h.monitor.Middleware)
		r.Use(router.authn.Authenticate)

		r.Get("/info", h.Info)
		r.With(router.authzMiddleware.Authorize(authz.ObjectAdminInfo, authz.ActionRead)).Get("/admin/info", h.AdminInfo)
		if router.server.IncludeRedisAdmin {
			r.With(router.authzMiddleware.Authorize(authz.ObjectCache, authz.ActionRead)).Get("/redis/{key}", h.CacheKey)
		}

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.With(router.authzMiddleware.Authorize(authz.ObjectSessions, authz.ActionDelete)).Delete("/", h.DeleteAllSessions)
			r.Get("/{session_id}", h.GetSession)
			r.Put("/{session_id}", h.ReplaceSession)
			r.Delete("/{session_id}", h.DeleteSession)
		})

		r.Post("/triples/fetch", h.FetchTriples)

		for _, c := range models.ResourceCategories() {
			r.Route("/"+c.Name, func(r chi.Router) {
				r.Post("/", h.CreateResource(c))
				r.Get("/{id}", h.GetResource(c))
				r.Post("/{id}/initialize", h.InitializeResource(c))

				switch c.Name {
				case models.DataResourceCategory.Name, models.ParserCategory.Name:
					r.Get("/{id}/info", h.ResourceInfo(c))
				case models.TransformationCategory.Name:
					r.Post("/{id}/execute", h.ExecuteTransformation)
					r.Get("/{id}/status", h.TransformationStatus)
				}
			})
		}
	}
	// An empty prefix mounts the API at the root next to /health.
	if router.server.Prefix == "" {
		r.Group(api)
	} else {
		r.Route(router.server.Prefix, api)
	}

	h.routes = walkRoutes(r)
	return r
}

// walkRoutes lists every mounted route, sorted by path then method.
func walkRoutes(r chi.Routes) []RouteInfo {
	var routes []RouteInfo
	//nolint:errcheck // the walk func never returns an error
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, RouteInfo{Method: method, Route: route})
		return nil
	})
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Route != routes[j].Route {
			return routes[i].Route < routes[j].Route
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}
