// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Get when the key is absent. An empty stored
	// value is not an error.
	ErrNotFound = errors.New("cache: key not found")

	// ErrNotInitialized is returned by a Manager that was never initialized
	// or has been terminated.
	ErrNotInitialized = errors.New("cache: not initialized")
)

// Store is the key-value contract every backend implements. Values are
// opaque bytes; callers store UTF-8 JSON.
type Store interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the given keys and returns how many existed.
	// Calling it with no keys is a no-op.
	Delete(ctx context.Context, keys ...string) (int64, error)

	// Keys returns every key starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// CompareAndSet writes value only if the current value equals old.
	// A nil old means the key must be absent. It reports whether the write
	// happened.
	CompareAndSet(ctx context.Context, key string, old, value []byte) (bool, error)

	// Ping checks that the backend is alive.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Type selects a backend implementation.
type Type string

const (
	TypeRedis    Type = "redis"
	TypeSentinel Type = "sentinel"
	TypeBadger   Type = "badger"
	TypeMemory   Type = "memory"
)

// ParseType maps a configured backend name to a Type. "fakeredis" is kept as
// an alias of the in-memory backend.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "redis", "":
		return TypeRedis, nil
	case "sentinel":
		return TypeSentinel, nil
	case "badger":
		return TypeBadger, nil
	case "memory", "fakeredis":
		return TypeMemory, nil
	default:
		return "", fmt.Errorf("unknown cache type %q", s)
	}
}
