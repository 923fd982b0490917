// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
)

// Session actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "oteapi"

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: publisher is closed")

// Event describes one session mutation.
type Event struct {
	Action    string    `json:"action"`
	SessionID string    `json:"session_id"`
	Fields    []string  `json:"fields,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends session events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Config configures the NATS publisher.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string

	mu     sync.RWMutex
	closed bool
}

// NewNATSPublisher connects to cfg.URL. The connection retries in the
// background, so a NATS server that starts after the service is picked up
// without a restart.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("events: nats url is required")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("oteapi-services"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrlRedacted()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix}, nil
}

// Subject returns the subject an action is published on.
func (p *NATSPublisher) Subject(action string) string {
	return Subject(p.prefix, action)
}

// Subject builds "<prefix>.session.<action>".
func Subject(prefix, action string) string {
	return prefix + ".session." + action
}

// Publish encodes ev and hands it to the NATS client. Delivery is at most
// once.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.RequestID == "" {
		ev.RequestID = logging.RequestIDFromContext(ctx)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.nc.Publish(p.Subject(ev.Action), data)
	metrics.RecordEventPublish(ev.Action, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(ev.Action), err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.nc.Drain()
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}
