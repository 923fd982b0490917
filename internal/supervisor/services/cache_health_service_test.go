// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/metrics"
)

// scriptedChecker answers pong from a script, repeating the last entry.
type scriptedChecker struct {
	mu     sync.Mutex
	script []bool
	calls  atomic.Int32
}

func (c *scriptedChecker) Health(context.Context) cache.Health {
	n := int(c.calls.Add(1)) - 1
	c.mu.Lock()
	defer c.mu.Unlock()
	if n >= len(c.script) {
		n = len(c.script) - 1
	}
	return cache.Health{Type: cache.TypeRedis, Address: "localhost:6379", Pong: c.script[n]}
}

var _ suture.Service = (*CacheHealthService)(nil)

func TestNewCacheHealthServiceDefaults(t *testing.T) {
	svc := NewCacheHealthService(&scriptedChecker{script: []bool{true}}, 0)
	if svc.interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s", svc.interval)
	}
	if svc.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", svc.timeout)
	}
	if svc.String() != "cache-health" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestCacheHealthServiceReportsTransitions(t *testing.T) {
	checker := &scriptedChecker{script: []bool{true, true, false, false, true}}
	svc := NewCacheHealthService(checker, 5*time.Millisecond)

	var mu sync.Mutex
	var changes []bool
	svc.onChange = func(h cache.Health) {
		mu.Lock()
		changes = append(changes, h.Pong)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for checker.calls.Load() < 6 {
		if time.Now().After(deadline) {
			t.Fatal("health checks did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	want := []bool{true, false, true}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v, want %v", changes, want)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Fatalf("changes = %v, want %v", changes, want)
		}
	}
	if got := testutil.ToFloat64(metrics.CacheHealthy); got != 1 {
		t.Errorf("cache_healthy = %v, want 1", got)
	}
}
