// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
//go:build integration

package testinfra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/session"
)

func startRedis(t *testing.T, ctx context.Context, opts ...RedisOption) *RedisContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	SkipIfNoDocker(t)

	redis, err := NewRedisContainer(ctx, opts...)
	if err != nil {
		t.Fatalf("Failed to create Redis container: %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, context.Background(), redis.Container) })
	return redis
}

func TestRedisBackend_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	redis := startRedis(t, ctx)

	m := cache.NewManager(cache.Config{Type: cache.TypeRedis, Host: redis.Host, Port: redis.Port, PrestartTries: 5, PrestartWait: 200 * time.Millisecond})
	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Terminate() //nolint:errcheck

	if h := m.Health(ctx); h.Type != cache.TypeRedis || !h.Pong || h.Fallback {
		t.Fatalf("Health() = %+v, want redis with pong and no fallback", h)
	}

	if err := m.Set(ctx, "filter-a", []byte(`{"filterType":"filter/demo"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := m.Get(ctx, "filter-a")
	if err != nil || string(got) != `{"filterType":"filter/demo"}` {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if _, err := m.Get(ctx, "filter-missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	keys, err := m.Keys(ctx, "filter-")
	if err != nil || len(keys) != 1 || keys[0] != "filter-a" {
		t.Errorf("Keys() = %v, %v", keys, err)
	}

	swapped, err := m.CompareAndSet(ctx, "filter-a", []byte("stale"), []byte("{}"))
	if err != nil || swapped {
		t.Errorf("CompareAndSet(stale) = %v, %v; want false", swapped, err)
	}
	swapped, err = m.CompareAndSet(ctx, "filter-a", got, []byte("{}"))
	if err != nil || !swapped {
		t.Errorf("CompareAndSet(current) = %v, %v; want true", swapped, err)
	}

	n, err := m.Delete(ctx, "filter-a", "filter-missing")
	if err != nil || n != 1 {
		t.Errorf("Delete() = %d, %v; want 1", n, err)
	}
}

func TestRedisPassword_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	redis := startRedis(t, ctx, WithRedisPassword("s3cret-for-tests"))

	m := cache.NewManager(cache.Config{Type: cache.TypeRedis, URL: redis.URL, PrestartTries: 5, PrestartWait: 200 * time.Millisecond})
	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Terminate() //nolint:errcheck

	if h := m.Health(ctx); !h.Pong || h.Fallback {
		t.Errorf("Health() = %+v, want pong without fallback", h)
	}
}

// Concurrent appends must all land: the session store relies on the
// backend's compare-and-set, which on Redis is a WATCH transaction.
func TestSessionAppendRace_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	redis := startRedis(t, ctx)

	m := cache.NewManager(cache.Config{Type: cache.TypeRedis, URL: redis.URL, PrestartTries: 5, PrestartWait: 200 * time.Millisecond})
	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer m.Terminate() //nolint:errcheck

	store := session.NewStore(m, session.WithMaxAttempts(100))
	id, err := store.Create(ctx, models.Document{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AppendListField(ctx, id, models.FilterCategory.InfoField, models.FilterCategory.NewID()); err != nil {
				t.Errorf("AppendListField() error = %v", err)
			}
		}()
	}
	wg.Wait()

	doc, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	list, _ := doc[models.FilterCategory.InfoField].([]any)
	if len(list) != writers {
		t.Errorf("filter_info has %d entries, want %d", len(list), writers)
	}
}
