// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// deadStore opens fine but never answers a ping.
type deadStore struct {
	Store
	closed atomic.Bool
}

func (d *deadStore) Ping(context.Context) error { return errors.New("connection refused") }
func (d *deadStore) Close() error {
	d.closed.Store(true)
	return nil
}

func fastConfig(t Type) Config {
	cfg := DefaultConfig()
	cfg.Type = t
	cfg.PrestartTries = 3
	cfg.PrestartWait = time.Millisecond
	return cfg
}

func mustInit(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func TestManagerConnectsPrimary(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := fastConfig(TypeRedis)
	cfg.URL = "redis://" + mr.Addr()
	m := NewManager(cfg)
	t.Cleanup(func() { _ = m.Terminate() })

	mustInit(t, m)
	if m.State() != StateConnectedPrimary {
		t.Errorf("State() = %v, want connected_primary", m.State())
	}

	h := m.Health(context.Background())
	want := Health{Type: TypeRedis, Address: cfg.Address(), Pong: true, State: "connected_primary"}
	if h != want {
		t.Errorf("Health() = %+v, want %+v", h, want)
	}

	mustSet(t, m, "session-1", `{}`)
	if !mr.Exists("session-1") {
		t.Error("write did not reach redis")
	}
}

func TestManagerRetriesThenFallsBack(t *testing.T) {
	var attempts atomic.Int32
	dead := &deadStore{}

	m := NewManager(fastConfig(TypeRedis))
	m.open = func(typ Type, cfg Config) (Store, error) {
		if typ == TypeMemory {
			return openStore(typ, cfg)
		}
		attempts.Add(1)
		return dead, nil
	}
	t.Cleanup(func() { _ = m.Terminate() })

	mustInit(t, m)

	if got := attempts.Load(); got != 3 {
		t.Errorf("primary attempts = %d, want PrestartTries (3)", got)
	}
	if !dead.closed.Load() {
		t.Error("failed primary connections should be closed")
	}
	if m.State() != StateConnectedFallback {
		t.Errorf("State() = %v, want connected_fallback", m.State())
	}

	h := m.Health(context.Background())
	if !h.Fallback || h.Type != TypeMemory || h.Address != "memory" {
		t.Errorf("Health() = %+v, want memory fallback", h)
	}

	mustSet(t, m, "session-x", `{"foo":"bar"}`)
	if v := mustGetStore(t, m, "session-x"); v != `{"foo":"bar"}` {
		t.Errorf("Get() = %q", v)
	}
}

func TestManagerOpenErrorSkipsRetries(t *testing.T) {
	var attempts atomic.Int32

	m := NewManager(fastConfig(TypeSentinel))
	m.open = func(typ Type, cfg Config) (Store, error) {
		if typ == TypeMemory {
			return openStore(typ, cfg)
		}
		attempts.Add(1)
		return nil, errors.New("bad sentinel config")
	}
	t.Cleanup(func() { _ = m.Terminate() })

	mustInit(t, m)
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if m.State() != StateConnectedFallback {
		t.Errorf("State() = %v, want connected_fallback", m.State())
	}
}

func TestManagerFallbackFailureIsFatal(t *testing.T) {
	m := NewManager(fastConfig(TypeRedis))
	m.open = func(Type, Config) (Store, error) {
		return &deadStore{}, nil
	}

	if err := m.Init(context.Background()); err == nil {
		t.Fatal("Init() should fail when the fallback is unreachable too")
	}
	if m.State() != StateFailed {
		t.Errorf("State() = %v, want failed", m.State())
	}
	if _, err := m.Get(context.Background(), "anything"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Get() error = %v, want ErrNotInitialized", err)
	}
}

func TestManagerMemoryPrimaryHasNoFallback(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(fastConfig(TypeMemory))
	m.open = func(Type, Config) (Store, error) {
		calls.Add(1)
		return &deadStore{}, nil
	}

	if err := m.Init(context.Background()); err == nil {
		t.Fatal("Init() should fail")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("open calls = %d, want 1", got)
	}
	if m.State() != StateFailed {
		t.Errorf("State() = %v, want failed", m.State())
	}
}

func TestManagerInitIsIdempotent(t *testing.T) {
	m := NewManager(fastConfig(TypeMemory))
	t.Cleanup(func() { _ = m.Terminate() })

	mustInit(t, m)
	mustSet(t, m, "k", "v")
	mustInit(t, m)

	if v := mustGetStore(t, m, "k"); v != "v" {
		t.Errorf("Get() = %q, second Init must not replace the backend", v)
	}
}

func TestManagerTerminate(t *testing.T) {
	m := NewManager(fastConfig(TypeMemory))
	mustInit(t, m)

	if err := m.Terminate(); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if err := m.Terminate(); err != nil {
		t.Fatalf("second Terminate() error = %v", err)
	}

	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if _, err := m.Keys(context.Background(), "session-"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Keys() error = %v, want ErrNotInitialized", err)
	}
	if err := m.Init(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Init() after Terminate error = %v, want ErrNotInitialized", err)
	}

	h := m.Health(context.Background())
	if h.Pong || h.Address != "" || h.Type != "" {
		t.Errorf("Health() = %+v, want empty", h)
	}
}

func TestManagerRespectsContext(t *testing.T) {
	cfg := fastConfig(TypeRedis)
	cfg.PrestartTries = 1000
	cfg.PrestartWait = 50 * time.Millisecond

	m := NewManager(cfg)
	m.open = func(typ Type, c Config) (Store, error) {
		if typ == TypeMemory {
			return openStore(typ, c)
		}
		return &deadStore{}, nil
	}
	t.Cleanup(func() { _ = m.Terminate() })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Init(ctx)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Init() took %v, the deadline was ignored", elapsed)
	}

	// The fallback gets one attempt even after the deadline, and the memory
	// backend does not need the context.
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if m.State() != StateConnectedFallback {
		t.Errorf("State() = %v, want connected_fallback", m.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state     State
		want      string
		connected bool
	}{
		{StateConnectingFallback, "connecting_fallback", false},
		{StateConnectedFallback, "connected_fallback", true},
		{StateConnectedPrimary, "connected_primary", true},
		{StateFailed, "failed", false},
		{State(42), "unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := tt.state.Connected(); got != tt.connected {
				t.Errorf("Connected() = %v, want %v", got, tt.connected)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Address(); got != "localhost:6379" {
		t.Errorf("default Address() = %q", got)
	}

	cfg.URL = "redis://cache:6379/1"
	if got := cfg.Address(); got != "redis://cache:6379/1" {
		t.Errorf("url Address() = %q", got)
	}

	cfg.Type = TypeBadger
	cfg.BadgerPath = "/data/cache"
	if got := cfg.Address(); got != "/data/cache" {
		t.Errorf("badger Address() = %q", got)
	}
}

// brokenReads answers pings but fails every Get.
type brokenReads struct {
	Store
}

func (b brokenReads) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("READONLY You can't write against a read only replica")
}

func TestManagerWrapsBackendErrors(t *testing.T) {
	m := NewManager(fastConfig(TypeMemory))
	m.open = func(typ Type, cfg Config) (Store, error) {
		s, err := openStore(typ, cfg)
		if err != nil {
			return nil, err
		}
		return brokenReads{Store: s}, nil
	}
	t.Cleanup(func() { _ = m.Terminate() })
	mustInit(t, m)

	_, err := m.Get(context.Background(), "session-1")
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("Get() error = %v, want *OpError", err)
	}
	if opErr.Op != "get" || opErr.Backend != TypeMemory {
		t.Errorf("OpError = {Op: %q, Backend: %q}, want {get, memory}", opErr.Op, opErr.Backend)
	}

	if _, err := m.Keys(context.Background(), "session-"); err != nil {
		t.Errorf("Keys() error = %v", err)
	}
}

func TestManagerNotFoundIsNotOpError(t *testing.T) {
	m := NewManager(fastConfig(TypeMemory))
	t.Cleanup(func() { _ = m.Terminate() })
	mustInit(t, m)

	_, err := m.Get(context.Background(), "session-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		t.Error("a missing key should not be reported as a backend failure")
	}
}
