// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
)

// State is the connection state of a Manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnectingPrimary
	StateConnectedPrimary
	StateConnectingFallback
	StateConnectedFallback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnectingPrimary:
		return "connecting_primary"
	case StateConnectedPrimary:
		return "connected_primary"
	case StateConnectingFallback:
		return "connecting_fallback"
	case StateConnectedFallback:
		return "connected_fallback"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Connected reports whether the state has an active backend.
func (s State) Connected() bool {
	return s == StateConnectedPrimary || s == StateConnectedFallback
}

// Config selects and tunes the primary backend.
type Config struct {
	Type           Type
	URL            string
	Host           string
	Port           int
	Username       string
	Password       string
	DB             int
	MaxConnections int
	SentinelAddrs  []string
	SentinelMaster string
	BadgerPath     string

	// PrestartTries bounds connection attempts to the primary.
	PrestartTries int
	// PrestartWait is the fixed interval between attempts.
	PrestartWait time.Duration
}

// DefaultConfig tolerates roughly five minutes of a slow-starting Redis.
func DefaultConfig() Config {
	return Config{
		Type:           TypeRedis,
		Host:           "localhost",
		Port:           6379,
		MaxConnections: 50,
		PrestartTries:  300,
		PrestartWait:   time.Second,
	}
}

// Address is a human-readable location of the configured backend.
func (c Config) Address() string {
	switch c.Type {
	case TypeRedis:
		if c.URL != "" {
			return c.URL
		}
		return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	case TypeSentinel:
		return c.SentinelMaster
	case TypeBadger:
		return c.BadgerPath
	default:
		return "memory"
	}
}

// Health is the backend status reported by the admin and info endpoints.
type Health struct {
	Type     Type   `json:"cache_type"`
	Address  string `json:"cache_address"`
	Pong     bool   `json:"cache_pong"`
	State    string `json:"state"`
	Fallback bool   `json:"fallback"`
}

type openFunc func(t Type, cfg Config) (Store, error)

// Manager owns the process-wide backend. It is created once at startup,
// shared by every handler, and terminated at shutdown. Manager implements
// Store by delegating to the active backend.
type Manager struct {
	mu     sync.RWMutex
	cfg    *Config
	store  Store
	active Type
	state  State
	open   openFunc
}

// NewManager returns a disconnected manager for cfg.
func NewManager(cfg Config) *Manager {
	if cfg.PrestartTries <= 0 {
		cfg.PrestartTries = 1
	}
	if cfg.PrestartWait <= 0 {
		cfg.PrestartWait = time.Second
	}
	return &Manager{cfg: &cfg, open: openStore}
}

// Init connects the primary backend, falling back once to the in-memory
// store when the primary cannot be reached or does not answer a ping.
// Calling Init on a connected manager is a no-op.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Connected() {
		return nil
	}
	if m.cfg == nil {
		return ErrNotInitialized
	}
	cfg := *m.cfg

	target := cfg.Type
	m.transition(StateConnectingPrimary, target)

	for {
		store, err := m.connect(ctx, target, cfg)
		if err == nil {
			m.store = store
			m.active = target
			if m.state == StateConnectingFallback {
				m.transition(StateConnectedFallback, target)
			} else {
				m.transition(StateConnectedPrimary, target)
			}
			return nil
		}

		if m.state == StateConnectingFallback || target == TypeMemory {
			m.transition(StateFailed, target)
			return fmt.Errorf("connect %s cache: %w", target, err)
		}

		logging.Warn().
			Err(err).
			Str("cache_type", string(target)).
			Str("cache_address", cfg.Address()).
			Msg("No live cache backend found - falling back to in-memory store")
		metrics.CacheFallbacks.Inc()

		target = TypeMemory
		m.transition(StateConnectingFallback, target)
	}
}

// connect opens and pings a backend. Network backends are retried at a fixed
// interval; the in-memory backend gets a single attempt.
func (m *Manager) connect(ctx context.Context, t Type, cfg Config) (Store, error) {
	tries := cfg.PrestartTries
	if t == TypeMemory {
		tries = 1
	}

	var store Store
	attempt := 0
	op := func() error {
		attempt++
		s, err := m.open(t, cfg)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return err
		}
		store = s
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.PrestartWait), uint64(tries-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		logging.Debug().
			Err(err).
			Str("cache_type", string(t)).
			Int("attempt", attempt).
			Int("max_attempts", tries).
			Dur("retry_in", wait).
			Msg("Cache backend not ready")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return store, nil
}

// transition must be called with mu held.
func (m *Manager) transition(to State, t Type) {
	from := m.state
	m.state = to
	metrics.CacheState.Set(float64(to))
	logging.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("cache_type", string(t)).
		Msg("Cache state transition")
}

// Terminate closes the backend and forgets the configuration so the manager
// cannot be reused. It is safe to call more than once.
func (m *Manager) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.store != nil {
		err = m.store.Close()
	}
	wasActive := m.store != nil || m.cfg != nil
	m.store = nil
	m.cfg = nil
	m.active = ""
	if wasActive {
		m.transition(StateDisconnected, "")
	}
	return err
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Health pings the active backend.
func (m *Manager) Health(ctx context.Context) Health {
	m.mu.RLock()
	store, active, state := m.store, m.active, m.state
	address := ""
	if m.cfg != nil {
		if state == StateConnectedFallback {
			address = "memory"
		} else {
			address = m.cfg.Address()
		}
	}
	m.mu.RUnlock()

	h := Health{
		Type:     active,
		Address:  address,
		State:    state.String(),
		Fallback: state == StateConnectedFallback,
	}
	if store != nil {
		h.Pong = store.Ping(ctx) == nil
	}
	return h
}

func (m *Manager) current() (Store, Type, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.store == nil {
		return nil, "", ErrNotInitialized
	}
	return m.store, m.active, nil
}

// OpError wraps a backend failure. A missing key is not an OpError.
type OpError struct {
	Op      string
	Backend Type
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("cache %s on %s: %v", e.Op, e.Backend, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// observe records the call and wraps backend failures in OpError.
func observe(op string, t Type, start time.Time, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		metrics.RecordCacheOperation(op, string(t), time.Since(start), nil)
		return err
	}
	metrics.RecordCacheOperation(op, string(t), time.Since(start), err)
	return &OpError{Op: op, Backend: t, Err: err}
}

func (m *Manager) Get(ctx context.Context, key string) ([]byte, error) {
	s, t, err := m.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	v, err := s.Get(ctx, key)
	err = observe("get", t, start, err)
	return v, err
}

func (m *Manager) Set(ctx context.Context, key string, value []byte) error {
	s, t, err := m.current()
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.Set(ctx, key, value)
	err = observe("set", t, start, err)
	return err
}

func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	s, t, err := m.current()
	if err != nil {
		return false, err
	}
	start := time.Now()
	ok, err := s.Exists(ctx, key)
	err = observe("exists", t, start, err)
	return ok, err
}

func (m *Manager) Delete(ctx context.Context, keys ...string) (int64, error) {
	s, t, err := m.current()
	if err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := s.Delete(ctx, keys...)
	err = observe("delete", t, start, err)
	return n, err
}

func (m *Manager) Keys(ctx context.Context, prefix string) ([]string, error) {
	s, t, err := m.current()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	keys, err := s.Keys(ctx, prefix)
	err = observe("keys", t, start, err)
	return keys, err
}

func (m *Manager) CompareAndSet(ctx context.Context, key string, old, value []byte) (bool, error) {
	s, t, err := m.current()
	if err != nil {
		return false, err
	}
	start := time.Now()
	ok, err := s.CompareAndSet(ctx, key, old, value)
	err = observe("compare_and_set", t, start, err)
	return ok, err
}

func (m *Manager) Ping(ctx context.Context) error {
	s, t, err := m.current()
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.Ping(ctx)
	err = observe("ping", t, start, err)
	return err
}

// Close is Terminate, so a Manager can be used wherever a Store is closed.
func (m *Manager) Close() error {
	return m.Terminate()
}

func openStore(t Type, cfg Config) (Store, error) {
	opts := RedisOptions{
		URL:           cfg.URL,
		Addr:          net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Username:      cfg.Username,
		Password:      cfg.Password,
		DB:            cfg.DB,
		PoolSize:      cfg.MaxConnections,
		SentinelAddrs: cfg.SentinelAddrs,
		MasterName:    cfg.SentinelMaster,
	}
	switch t {
	case TypeRedis:
		return NewRedisStore(opts)
	case TypeSentinel:
		return NewSentinelStore(opts)
	case TypeBadger:
		return OpenBadger(cfg.BadgerPath)
	case TypeMemory:
		return OpenMemory()
	default:
		return nil, fmt.Errorf("unknown cache type %q", t)
	}
}
