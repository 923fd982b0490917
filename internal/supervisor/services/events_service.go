// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// EventServer is an in-process message server that is stopped on shutdown.
// Satisfied by *events.EmbeddedServer.
type EventServer interface {
	Shutdown()
}

// EventFeedService keeps the session change feed open for the lifetime of
// the tree and releases it on shutdown: the publisher is closed first so it
// can flush, then the embedded server, if any, is stopped.
//
// Both are created before the tree starts because the session store needs
// the publisher at construction. A restart of this service therefore only
// waits again; it does not reconnect.
type EventFeedService struct {
	publisher io.Closer
	server    EventServer
	name      string
}

// NewEventFeedService wraps publisher and server. server may be nil.
func NewEventFeedService(publisher io.Closer, server EventServer) *EventFeedService {
	return &EventFeedService{publisher: publisher, server: server, name: "event-feed"}
}

// Serve implements suture.Service.
func (s *EventFeedService) Serve(ctx context.Context) error {
	<-ctx.Done()

	var errs []error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event publisher: %w", err))
		}
	}
	if s.server != nil {
		s.server.Shutdown()
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return ctx.Err()
}

// String names the service in supervisor events.
func (s *EventFeedService) String() string {
	return s.name
}
