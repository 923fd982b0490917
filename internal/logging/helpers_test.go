// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// setLogger swaps the global logger so tests can capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func setLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// newTestLogger writes JSON lines to w.
func newTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
