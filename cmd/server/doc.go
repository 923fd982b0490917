// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
/*
Package main is the entry point for the OTEAPI Services server.

The server keeps sessions and resource configurations in a cache backend
and runs pluggable strategies (download, parse, filter, function, mapping,
resource, transformation) against them over a REST API.

# Application Architecture

Startup order:

 1. Configuration: Koanf v2 with defaults, an optional YAML file and
    OTEAPI_ environment variables
 2. Logging: zerolog with JSON or console output
 3. Cache: Redis, Redis Sentinel, BadgerDB or in-memory, with fallback to
    memory when Redis never answers
 4. Events: optional NATS publisher for session changes, with an optional
    embedded server
 5. Strategies: built-in download, parse and demo strategies
 6. HTTP: Chi router with authentication, authorization and rate limiting
 7. Supervisor Tree: suture v4

	RootSupervisor ("oteapi-services")
	├── StorageSupervisor ("storage-layer")
	│   └── CacheHealthService
	├── EventsSupervisor ("events-layer")
	│   └── EventFeedService (if OTEAPI_EVENTS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

# Configuration

Priority: Environment variables > Config file > Defaults

	# Server
	OTEAPI_PORT=8080
	OTEAPI_PREFIX=/api/v1
	OTEAPI_INCLUDE_REDISADMIN=false
	LOG_LEVEL=info                   # reloaded when the config file changes

	# Cache
	OTEAPI_REDIS_TYPE=redis          # redis, sentinel, badger, memory
	OTEAPI_REDIS_HOST=localhost
	OTEAPI_REDIS_PORT=6379

	# Authentication
	OTEAPI_AUTH_MODE=none            # none, jwt, basic
	OTEAPI_JWT_SECRET=<32+ chars>

	# Session events
	OTEAPI_EVENTS_ENABLED=false
	OTEAPI_NATS_EMBEDDED=false

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests for up to OTEAPI_TIMEOUT, the event publisher is
flushed and the cache connection is closed last.

# Example Usage

	export OTEAPI_REDIS_TYPE=memory
	./oteapi-services

	curl -X POST localhost:8080/api/v1/session -d '{}'
*/
package main
