// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

/*
Package middleware provides infrastructure HTTP middleware shared by every
route.

Key Components:

  - RequestID: X-Request-ID propagation with a generated UUID fallback
  - PrometheusMetrics: request count, latency and in-flight instrumentation
    labelled by chi route pattern
  - PerformanceMonitor: sliding window of recent requests with percentile
    statistics, shown on the admin info page

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(monitor.Middleware)

RoutePattern only resolves once chi has matched the route, so both
recording middlewares read it after calling the next handler.
*/
package middleware
