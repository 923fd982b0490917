// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package session stores pipeline sessions: open JSON documents that
// accumulate state across strategy calls.
//
// Every read-merge-write commits through the cache's CompareAndSet, so two
// requests merging into the same session at once cannot lose either update.
// A writer that loses the race re-reads and merges again, up to a bounded
// number of attempts.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/events"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
	"github.com/tomtom215/oteapi-services/internal/models"
)

// DefaultMaxAttempts bounds compare-and-set retries per merge.
const DefaultMaxAttempts = 5

// Messages returned by the bulk delete endpoint.
const (
	MsgNoSessions = "No session keys found to delete."
	MsgAllDeleted = "All session keys deleted."
)

const idField = "session_id"

// Store is the session store. It is safe for concurrent use.
type Store struct {
	cache       cache.Store
	events      events.Publisher
	maxAttempts int
}

// Option configures a Store.
type Option func(*Store)

// WithEvents publishes every mutation to p.
func WithEvents(p events.Publisher) Option {
	return func(s *Store) { s.events = p }
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewStore returns a store on c.
func NewStore(c cache.Store, opts ...Option) *Store {
	s := &Store{cache: c, events: events.Noop{}, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Version is the optimistic concurrency token of a stored session: the hex
// SHA-256 of its bytes.
func Version(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Create persists body verbatim under a new id.
func (s *Store) Create(ctx context.Context, body models.Document) (string, error) {
	data, err := body.Encode()
	if err != nil {
		return "", models.Invalid("body", "session body cannot be encoded: %v", err)
	}
	id := models.SessionCategory.NewID()
	if err := s.cache.Set(ctx, id, data); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	s.publish(ctx, events.ActionCreated, id, body.Keys())
	return id, nil
}

// Get loads a session.
func (s *Store) Get(ctx context.Context, id string) (models.Document, error) {
	_, doc, err := s.load(ctx, id)
	return doc, err
}

// GetWithVersion loads a session and its version token.
func (s *Store) GetWithVersion(ctx context.Context, id string) (models.Document, string, error) {
	raw, doc, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return doc, Version(raw), nil
}

// Replace merges body into the stored session; fields absent from body are
// kept. A non-empty ifMatch must equal the current version or the call
// fails with Conflict and nothing is written.
func (s *Store) Replace(ctx context.Context, id string, body models.Document, ifMatch string) (models.Document, string, error) {
	doc, data, err := s.mutate(ctx, id, ifMatch, func(doc models.Document) error {
		doc.Merge(body)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	s.publish(ctx, events.ActionUpdated, id, body.Keys())
	return doc, Version(data), nil
}

// Update merges a strategy result into the session.
func (s *Store) Update(ctx context.Context, id string, update models.Document) (models.Document, error) {
	doc, _, err := s.mutate(ctx, id, "", func(doc models.Document) error {
		doc.Merge(update)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionUpdated, id, update.Keys())
	return doc, nil
}

// AppendListField appends items to the list at field, creating the list on
// first use. An existing non-list value is a TypeMismatch.
func (s *Store) AppendListField(ctx context.Context, id, field string, items ...any) (models.Document, error) {
	doc, _, err := s.mutate(ctx, id, "", func(doc models.Document) error {
		current, present := doc[field]
		var list []any
		if present && current != nil {
			l, ok := current.([]any)
			if !ok {
				return models.TypeMismatch(idField, id, "Field %q in session %s is not a list.", field, id)
			}
			list = l
		}
		doc[field] = append(append([]any{}, list...), items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionUpdated, id, []string{field})
	return doc, nil
}

// List returns every session id, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.cache.Keys(ctx, models.SessionCategory.KeyPrefix())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return keys, nil
}

// DeleteAll removes every session and returns how many were removed.
// An empty store is not an error.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.cache.Delete(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	for _, id := range keys {
		s.publish(ctx, events.ActionDeleted, id, nil)
	}
	return n, nil
}

// Delete removes one session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !models.SessionCategory.Owns(id) {
		return models.NotFound(idField, id)
	}
	n, err := s.cache.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return models.NotFound(idField, id)
	}
	s.publish(ctx, events.ActionDeleted, id, nil)
	return nil
}

func (s *Store) load(ctx context.Context, id string) ([]byte, models.Document, error) {
	if !models.SessionCategory.Owns(id) {
		return nil, nil, models.NotFound(idField, id)
	}
	raw, err := s.cache.Get(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil, models.NotFound(idField, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load session %s: %w", id, err)
	}
	doc, err := models.DecodeDocument(raw)
	if err != nil {
		return nil, nil, models.TypeMismatch(idField, id, "Session %s is not a JSON object.", id)
	}
	return raw, doc, nil
}

// mutate runs a read-modify-CAS loop. fn may be called more than once and
// must only depend on the document it is given.
func (s *Store) mutate(ctx context.Context, id, ifMatch string, fn func(models.Document) error) (models.Document, []byte, error) {
	for attempt := 1; ; attempt++ {
		raw, doc, err := s.load(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if ifMatch != "" && Version(raw) != ifMatch {
			return nil, nil, models.Conflict(idField, id, "Session %s was modified; version %s is stale.", id, ifMatch)
		}
		if err := fn(doc); err != nil {
			return nil, nil, err
		}
		data, err := doc.Encode()
		if err != nil {
			return nil, nil, models.Invalid("body", "session update cannot be encoded: %v", err)
		}

		swapped, err := s.cache.CompareAndSet(ctx, id, raw, data)
		if err != nil {
			return nil, nil, fmt.Errorf("write session %s: %w", id, err)
		}
		if swapped {
			return doc, data, nil
		}

		if ifMatch != "" || attempt >= s.maxAttempts {
			return nil, nil, models.Conflict(idField, id, "Session %s was modified concurrently.", id)
		}
		metrics.SessionCASRetries.Inc()
		logging.Ctx(ctx).Debug().Str("session_id", id).Int("attempt", attempt).Msg("Session write lost a race, retrying")
	}
}

func (s *Store) publish(ctx context.Context, action, id string, fields []string) {
	err := s.events.Publish(ctx, events.Event{Action: action, SessionID: id, Fields: fields})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", id).Str("action", action).Msg("Session event not published")
	}
}
