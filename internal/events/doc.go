// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package events publishes session change notifications over NATS.
//
// Every session mutation produces an Event on the subject
// "<prefix>.session.<action>" (created, updated, deleted). Subscribers can
// follow a pipeline without polling the cache. The feed is best effort:
// publishing never fails the HTTP request that caused it.
//
// When events are disabled the service uses Noop. For local development an
// embedded nats-server can be started in-process with NewEmbeddedServer.
package events
