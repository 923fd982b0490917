// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(newTestLogger(&buf)))

	logger.Warn("service restarted",
		slog.String("service", "http-server"),
		slog.Int("attempt", 3),
		slog.Duration("backoff", time.Second),
		slog.Bool("failed", true),
	)

	output := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"http-server"`,
		`"attempt":3`,
		`"failed":true`,
		`"message":"service restarted"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogHandlerAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(newTestLogger(&buf))).
		With(slog.String("supervisor", "oteapi")).
		WithGroup("event")

	logger.Info("tree event", slog.Group("svc", slog.String("name", "cache-monitor")))

	output := buf.String()
	if !strings.Contains(output, `supervisor":"oteapi"`) {
		t.Errorf("expected pre-set attr: %s", output)
	}
	if !strings.Contains(output, `"event.svc.name":"cache-monitor"`) {
		t.Errorf("expected nested group attr: %s", output)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	h := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info must be disabled on a warn-level logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error must be enabled on a warn-level logger")
	}
}

func TestWithGroupEmptyName(t *testing.T) {
	h := NewSlogHandler()
	if h.WithGroup("") != h {
		t.Error("empty group name must return the same handler")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
