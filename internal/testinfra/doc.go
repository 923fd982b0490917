// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
/*
Package testinfra starts real backing services for integration tests.

All files carry the integration build tag, so the package is empty in a
normal build:

	go test -tags integration ./internal/testinfra/...

Tests skip when Docker is unavailable or when -short is set.

Containers:

  - RedisContainer: redis:7-alpine, optionally with requirepass, used to
    exercise the Redis cache backend and session compare-and-set under
    contention
*/
package testinfra
