// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/oteapi/config.yaml",
	"/etc/oteapi/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			Prefix:          "/api/v1",
			APIName:         "oteapi_services",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Cache: CacheConfig{
			Type:           "redis",
			Host:           "localhost",
			Port:           6379,
			MaxConnections: 50,
			SentinelMaster: "mymaster",
			BadgerPath:     "/data/oteapi/cache",
			PrestartTries:  300,
			PrestartWait:   time.Second,
			HealthInterval: 30 * time.Second,
		},
		Strategies: StrategiesConfig{
			HTTPTimeout:      30 * time.Second,
			DownloadRate:     10,
			DownloadBurst:    10,
			MaxDownloadBytes: 64 << 20,
		},
		Security: SecurityConfig{
			AuthMode:  "none",
			TokenTTL:  24 * time.Hour,
			AdminRole: "admin",
		},
		Events: EventsConfig{
			Enabled:       false,
			NATSURL:       "nats://127.0.0.1:4222",
			EmbeddedPort:  4222,
			SubjectPrefix: "oteapi",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using Koanf with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Environment variables keep the OTEAPI_ names of earlier deployments, so
// OTEAPI_REDIS_HOST still selects the Redis host and DEV_ENV=1 still turns
// on debug mode.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := FindConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// OTEAPI_REDIS_PORT -> cache.port
	// OTEAPI_PREFIX -> server.prefix
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := normalize(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// normalize post-processes values whose environment form differs from the
// struct form.
func normalize(k *koanf.Koanf) error {
	if err := processSliceFields(k); err != nil {
		return fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processSecondsFields(k); err != nil {
		return err
	}
	return processDevEnv(k)
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"cache.sentinel_addrs",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// secondsConfigPaths accept a bare integer meaning seconds, as well as a
// Go duration string.
var secondsConfigPaths = []string{
	"cache.prestart_wait",
}

func processSecondsFields(k *koanf.Koanf) error {
	for _, path := range secondsConfigPaths {
		var secs float64
		switch v := k.Get(path).(type) {
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue // a duration string such as "500ms"
			}
			secs = n
		case int:
			secs = float64(v)
		case int64:
			secs = float64(v)
		case float64:
			secs = v
		default:
			continue
		}
		if err := k.Set(path, time.Duration(secs*float64(time.Second))); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// devEnvPath carries DEV_ENV until it is folded into server.debug.
const devEnvPath = "server.dev_env"

// processDevEnv applies DEV_ENV. Any non-zero integer turns debug mode on,
// zero turns it off.
func processDevEnv(k *koanf.Koanf) error {
	raw := k.Get(devEnvPath)
	if raw == nil {
		return nil
	}
	k.Delete(devEnvPath)

	n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(raw)))
	if err != nil {
		return fmt.Errorf("DEV_ENV must be an integer, got %q", raw)
	}
	return k.Set("server.debug", n != 0)
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - OTEAPI_PREFIX -> server.prefix
//   - OTEAPI_REDIS_TYPE -> cache.type
//   - OTEAPI_REDIS_SENTINELS -> cache.sentinel_addrs
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"oteapi_host":               "server.host",
		"oteapi_port":               "server.port",
		"oteapi_timeout":            "server.timeout",
		"oteapi_prefix":             "server.prefix",
		"oteapi_api_name":           "server.api_name",
		"oteapi_debug":              "server.debug",
		"dev_env":                   devEnvPath,
		"oteapi_include_redisadmin": "server.include_redisadmin",
		"oteapi_cors_origins":       "server.cors_origins",
		"oteapi_rate_limit_reqs":    "server.rate_limit_reqs",
		"oteapi_rate_limit_window":  "server.rate_limit_window",
		"oteapi_disable_rate_limit": "server.rate_limit_disabled",

		// Cache
		"oteapi_redis_type":            "cache.type",
		"oteapi_redis_url":             "cache.url",
		"oteapi_redis_host":            "cache.host",
		"oteapi_redis_port":            "cache.port",
		"oteapi_redis_user":            "cache.username",
		"oteapi_redis_password":        "cache.password",
		"oteapi_redis_db":              "cache.db",
		"oteapi_redis_max_connections": "cache.max_connections",
		"oteapi_redis_sentinels":       "cache.sentinel_addrs",
		"oteapi_redis_sentinel_master": "cache.sentinel_master",
		"oteapi_redis_prestart_tries":  "cache.prestart_tries",
		"oteapi_redis_prestart_wait":   "cache.prestart_wait",
		"oteapi_badger_path":           "cache.badger_path",
		"oteapi_cache_health_interval": "cache.health_interval",

		// Strategies
		"oteapi_http_timeout":       "strategies.http_timeout",
		"oteapi_download_rate":      "strategies.download_rate",
		"oteapi_download_burst":     "strategies.download_burst",
		"oteapi_max_download_bytes": "strategies.max_download_bytes",
		"oteapi_file_root":          "strategies.file_root",

		// Security
		"oteapi_auth_mode":      "security.auth_mode",
		"oteapi_jwt_secret":     "security.jwt_secret",
		"oteapi_jwt_ttl":        "security.token_ttl",
		"oteapi_admin_username": "security.admin_username",
		"oteapi_admin_password": "security.admin_password",
		"oteapi_admin_role":     "security.admin_role",

		// Events
		"oteapi_events_enabled":        "events.enabled",
		"oteapi_nats_url":              "events.nats_url",
		"oteapi_nats_embedded":         "events.embedded",
		"oteapi_nats_embedded_port":    "events.embedded_port",
		"oteapi_events_subject_prefix": "events.subject_prefix",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables never
	// reach the configuration.
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes. The
// caller is responsible for synchronizing access to a reloaded Config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
