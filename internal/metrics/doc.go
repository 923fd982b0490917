// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

/*
Package metrics provides Prometheus metrics for the strategy pipeline service.

All collectors are registered with the default registry through promauto and
exposed at /metrics in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP Metrics:
  - oteapi_api_requests_total: Requests by method, route pattern and status
  - oteapi_api_request_duration_seconds: Request latency (histogram)
  - oteapi_api_active_requests: In-flight requests (gauge)
  - oteapi_api_rate_limit_hits_total: Rejections by the rate limiter

Cache Metrics:
  - oteapi_cache_operations_total: Backend calls by operation, backend, result
  - oteapi_cache_operation_duration_seconds: Backend call latency
  - oteapi_cache_state: Current state of the cache manager
  - oteapi_cache_fallbacks_total: Falls back to the in-memory store

Pipeline Metrics:
  - oteapi_dispatch_total: Strategy calls by category, method and outcome
  - oteapi_dispatch_duration_seconds: Strategy call latency
  - oteapi_session_cas_retries_total: Session writes that lost a race
  - oteapi_download_bytes_total: Bytes fetched by download strategies
  - oteapi_events_published_total: Session change events

Circuit Breaker Metrics:
  - oteapi_circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - oteapi_circuit_breaker_requests_total: Calls by result
  - oteapi_circuit_breaker_state_transitions_total: State changes

# Usage

	start := time.Now()
	v, err := store.Get(ctx, key)
	metrics.RecordCacheOperation("get", "redis", time.Since(start), err)

# Thread Safety

All metric operations are safe for concurrent use.
*/
package metrics
