// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recorder struct {
	calls    []string
	closeErr error
}

type recordingCloser struct{ r *recorder }

func (c recordingCloser) Close() error {
	c.r.calls = append(c.r.calls, "publisher")
	return c.r.closeErr
}

type recordingServer struct{ r *recorder }

func (s recordingServer) Shutdown() { s.r.calls = append(s.r.calls, "server") }

func TestEventFeedServiceShutdownOrder(t *testing.T) {
	r := &recorder{}
	svc := NewEventFeedService(recordingCloser{r}, recordingServer{r})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
	if len(r.calls) != 2 || r.calls[0] != "publisher" || r.calls[1] != "server" {
		t.Errorf("calls = %v, want [publisher server]", r.calls)
	}
}

func TestEventFeedServiceCloseError(t *testing.T) {
	r := &recorder{closeErr: errors.New("flush failed")}
	svc := NewEventFeedService(recordingCloser{r}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Serve(ctx)
	if err == nil || !errors.Is(err, r.closeErr) {
		t.Errorf("Serve() = %v, want wrapped close error", err)
	}
	if svc.String() != "event-feed" {
		t.Errorf("String() = %q", svc.String())
	}
}
