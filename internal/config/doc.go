// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

/*
Package config provides centralized configuration management for OTEAPI Services.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. Later layers override earlier ones.

# Configuration Sources

  - Defaults from defaultConfig
  - config.yaml / config.yml in the working directory, or /etc/oteapi/
  - CONFIG_PATH pointing at an explicit YAML file
  - Environment variables (highest priority)

# Environment Variables

Server (ServerConfig):
  - OTEAPI_HOST, OTEAPI_PORT: Listen address (default: 0.0.0.0:8080)
  - OTEAPI_PREFIX: Route prefix (default: /api/v1)
  - OTEAPI_API_NAME: Service name (default: oteapi_services)
  - OTEAPI_DEBUG: Debug mode
  - DEV_ENV: Integer, non-zero enables debug mode and overrides OTEAPI_DEBUG
  - OTEAPI_INCLUDE_REDISADMIN: Mount GET /redis/{key}
  - OTEAPI_CORS_ORIGINS: Comma-separated allowed origins (default: *)

Cache (CacheConfig):
  - OTEAPI_REDIS_TYPE: redis, sentinel, badger, memory or fakeredis
  - OTEAPI_REDIS_URL: redis:// URL, takes precedence over host and port
  - OTEAPI_REDIS_HOST, OTEAPI_REDIS_PORT: default localhost:6379
  - OTEAPI_REDIS_USER, OTEAPI_REDIS_PASSWORD, OTEAPI_REDIS_DB
  - OTEAPI_REDIS_SENTINELS: Comma-separated host:port list
  - OTEAPI_REDIS_SENTINEL_MASTER: default mymaster
  - OTEAPI_REDIS_PRESTART_TRIES: Connection attempts at startup (default: 300)
  - OTEAPI_REDIS_PRESTART_WAIT: Seconds or a duration between attempts (default: 1)
  - OTEAPI_BADGER_PATH: Directory of the embedded badger cache

Security (SecurityConfig):
  - OTEAPI_AUTH_MODE: none, jwt or basic (default: none)
  - OTEAPI_JWT_SECRET: HS256 secret, at least 32 characters
  - OTEAPI_ADMIN_USERNAME, OTEAPI_ADMIN_PASSWORD: basic mode credentials

Events (EventsConfig):
  - OTEAPI_EVENTS_ENABLED, OTEAPI_NATS_URL, OTEAPI_NATS_EMBEDDED

Logging (LoggingConfig):
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Server.Address())
*/
package config
