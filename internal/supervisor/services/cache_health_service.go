// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
package services

import (
	"context"
	"time"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
)

// HealthChecker reports the state of the cache backend.
// Satisfied by *cache.Manager.
type HealthChecker interface {
	Health(ctx context.Context) cache.Health
}

// CacheHealthService pings the cache on an interval, exports the result as
// the cache_healthy gauge and logs every change between pong and no answer.
type CacheHealthService struct {
	checker  HealthChecker
	interval time.Duration
	timeout  time.Duration
	name     string

	// onChange, when set, is called after a transition is logged.
	onChange func(cache.Health)
}

// NewCacheHealthService creates the monitor. A non-positive interval means
// 30s.
func NewCacheHealthService(checker HealthChecker, interval time.Duration) *CacheHealthService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &CacheHealthService{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		name:     "cache-health",
	}
}

// Serve implements suture.Service. It checks once immediately, then on
// every tick until ctx is canceled.
func (s *CacheHealthService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log := logging.WithComponent(s.name)
	var last *bool
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		h := s.checker.Health(pingCtx)
		cancel()

		metrics.RecordCacheHealth(h.Pong)
		if last != nil && *last == h.Pong {
			return
		}
		pong := h.Pong
		last = &pong

		event := log.Info()
		msg := "Cache backend reachable"
		if !h.Pong {
			event = log.Warn()
			msg = "Cache backend not answering"
		}
		event.Str("cache_type", string(h.Type)).
			Str("cache_address", h.Address).
			Str("state", h.State).
			Bool("fallback", h.Fallback).
			Msg(msg)
		if s.onChange != nil {
			s.onChange(h)
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			check()
		}
	}
}

// String names the service in supervisor events.
func (s *CacheHealthService) String() string {
	return s.name
}
