// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/logging"
)

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateStrategies(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("OTEAPI_PORT must be between 1 and 65535")
	}
	if c.Server.Prefix != "" && (!strings.HasPrefix(c.Server.Prefix, "/") || strings.HasSuffix(c.Server.Prefix, "/")) {
		return fmt.Errorf("OTEAPI_PREFIX must start with / and must not end with /, got %q", c.Server.Prefix)
	}
	if c.Server.APIName == "" {
		return fmt.Errorf("OTEAPI_API_NAME is required")
	}
	return c.validateRateLimits()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("OTEAPI_RATE_LIMIT_REQS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("OTEAPI_RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateCache() error {
	t, err := cache.ParseType(c.Cache.Type)
	if err != nil {
		return fmt.Errorf("OTEAPI_REDIS_TYPE must be one of: redis, sentinel, badger, memory, fakeredis")
	}
	switch t {
	case cache.TypeRedis:
		if err := c.validateRedisURL(); err != nil {
			return err
		}
		if c.Cache.URL == "" && (c.Cache.Port < 1 || c.Cache.Port > 65535) {
			return fmt.Errorf("OTEAPI_REDIS_PORT must be between 1 and 65535")
		}
	case cache.TypeSentinel:
		if len(c.Cache.SentinelAddrs) == 0 {
			return fmt.Errorf("OTEAPI_REDIS_SENTINELS is required when OTEAPI_REDIS_TYPE is sentinel")
		}
		if c.Cache.SentinelMaster == "" {
			return fmt.Errorf("OTEAPI_REDIS_SENTINEL_MASTER is required when OTEAPI_REDIS_TYPE is sentinel")
		}
	case cache.TypeBadger:
		if c.Cache.BadgerPath == "" {
			return fmt.Errorf("OTEAPI_BADGER_PATH is required when OTEAPI_REDIS_TYPE is badger")
		}
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("OTEAPI_REDIS_DB must not be negative")
	}
	if c.Cache.PrestartTries < 1 {
		return fmt.Errorf("OTEAPI_REDIS_PRESTART_TRIES must be at least 1")
	}
	if c.Cache.PrestartWait < 0 {
		return fmt.Errorf("OTEAPI_REDIS_PRESTART_WAIT must not be negative")
	}
	return nil
}

// validateRedisURL accepts redis:// and rediss:// URLs with a host.
func (c *Config) validateRedisURL() error {
	if c.Cache.URL == "" {
		return nil
	}
	u, err := url.Parse(c.Cache.URL)
	if err != nil {
		return fmt.Errorf("OTEAPI_REDIS_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return fmt.Errorf("OTEAPI_REDIS_URL must use redis:// or rediss://, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("OTEAPI_REDIS_URL must include a host")
	}
	return nil
}

func (c *Config) validateStrategies() error {
	s := c.Strategies
	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("OTEAPI_HTTP_TIMEOUT must be positive")
	}
	if s.DownloadRate <= 0 {
		return fmt.Errorf("OTEAPI_DOWNLOAD_RATE must be positive")
	}
	if s.DownloadBurst < 1 {
		return fmt.Errorf("OTEAPI_DOWNLOAD_BURST must be at least 1")
	}
	if s.MaxDownloadBytes < 1 {
		return fmt.Errorf("OTEAPI_MAX_DOWNLOAD_BYTES must be at least 1")
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none":  true,
	"jwt":   true,
	"basic": true,
}

func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("OTEAPI_AUTH_MODE must be one of: none, jwt, basic")
	}
	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
		if c.Security.AdminRole == "" {
			return fmt.Errorf("OTEAPI_ADMIN_ROLE is required when OTEAPI_AUTH_MODE is jwt")
		}
	case "basic":
		if err := c.validateAdminCredentials(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("OTEAPI_JWT_SECRET is required when OTEAPI_AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("OTEAPI_JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("OTEAPI_JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("OTEAPI_ADMIN_USERNAME is required when OTEAPI_AUTH_MODE is basic")
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("OTEAPI_ADMIN_PASSWORD is required when OTEAPI_AUTH_MODE is basic")
	}
	if len(c.Security.AdminPassword) < 12 {
		return fmt.Errorf("OTEAPI_ADMIN_PASSWORD must be at least 12 characters")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("OTEAPI_ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.HasWildcardCORS()
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled || c.Events.Embedded {
		if c.Events.Embedded && (c.Events.EmbeddedPort < 1 || c.Events.EmbeddedPort > 65535) {
			return fmt.Errorf("OTEAPI_NATS_EMBEDDED_PORT must be between 1 and 65535")
		}
		return nil
	}
	return validateNATSURL(c.Events.NATSURL)
}

// validateNATSURL checks that the NATS URL has a supported scheme and a host.
func validateNATSURL(natsURL string) error {
	if natsURL == "" {
		return fmt.Errorf("OTEAPI_NATS_URL is required when events are enabled")
	}
	u, err := url.Parse(natsURL)
	if err != nil {
		return fmt.Errorf("OTEAPI_NATS_URL is not a valid URL: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("OTEAPI_NATS_URL must use nats://, tls://, ws:// or wss://, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("OTEAPI_NATS_URL must include a host")
	}
	return nil
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns are values that indicate a secret was never set.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
