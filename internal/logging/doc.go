// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package logging provides centralized zerolog-based structured logging for
// the OTEAPI services.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from main via Init
//   - JSON output for production and console output for development
//   - Context-aware logging that carries request, correlation and session IDs
//   - An slog adapter so Suture's event hook writes through zerolog
//   - Authentication event logging with token and credential masking
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("cache_type", "redis").Msg("Cache connected")
//	logging.Ctx(ctx).Error().Err(err).Str("strategy", name).Msg("Strategy failed")
//
// # Configuration
//
// Environment Variables (read by internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Context Fields
//
// The HTTP middleware stores a request ID in the request context. Handlers
// that work on behalf of a session add it with ContextWithSessionID. Ctx
// attaches every ID it finds:
//
//	{"level":"info","request_id":"8a7c...","session_id":"session-4f1e...","message":"Session updated"}
//
// # Thread Safety
//
// The global logger is guarded by a RWMutex; Init may be called again at
// runtime to reconfigure it.
package logging
