// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/oteapi-services/internal/cache"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: OTEAPI_* variables override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	manager := cache.NewManager(cfg.Cache.ToCache())
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Cache      CacheConfig      `koanf:"cache"`
	Strategies StrategiesConfig `koanf:"strategies"`
	Security   SecurityConfig   `koanf:"security"`
	Events     EventsConfig     `koanf:"events"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// Prefix is the route prefix every API route is mounted under.
	Prefix string `koanf:"prefix"`
	// APIName namespaces the service in logs and /info.
	APIName string `koanf:"api_name"`
	Debug   bool   `koanf:"debug"`

	// IncludeRedisAdmin mounts GET /redis/{key}. The raw cache may hold
	// other users' tokens, so the route is also guarded by admin authz.
	IncludeRedisAdmin bool `koanf:"include_redisadmin"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Address returns host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	// Type is redis, sentinel, badger or memory (fakeredis is an alias).
	Type           string   `koanf:"type"`
	URL            string   `koanf:"url"`
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	Username       string   `koanf:"username"`
	Password       string   `koanf:"password"`
	DB             int      `koanf:"db"`
	MaxConnections int      `koanf:"max_connections"`
	SentinelAddrs  []string `koanf:"sentinel_addrs"`
	SentinelMaster string   `koanf:"sentinel_master"`
	BadgerPath     string   `koanf:"badger_path"`

	PrestartTries  int           `koanf:"prestart_tries"`
	PrestartWait   time.Duration `koanf:"prestart_wait"`
	HealthInterval time.Duration `koanf:"health_interval"`
}

// ToCache converts the settings into a cache.Config. Validate must have
// accepted the type.
func (c CacheConfig) ToCache() cache.Config {
	t, err := cache.ParseType(c.Type)
	if err != nil {
		t = cache.TypeRedis
	}
	return cache.Config{
		Type:           t,
		URL:            c.URL,
		Host:           c.Host,
		Port:           c.Port,
		Username:       c.Username,
		Password:       c.Password,
		DB:             c.DB,
		MaxConnections: c.MaxConnections,
		SentinelAddrs:  c.SentinelAddrs,
		SentinelMaster: c.SentinelMaster,
		BadgerPath:     c.BadgerPath,
		PrestartTries:  c.PrestartTries,
		PrestartWait:   c.PrestartWait,
	}
}

// StrategiesConfig tunes the built-in strategies.
type StrategiesConfig struct {
	HTTPTimeout      time.Duration `koanf:"http_timeout"`
	DownloadRate     float64       `koanf:"download_rate"`
	DownloadBurst    int           `koanf:"download_burst"`
	MaxDownloadBytes int64         `koanf:"max_download_bytes"`
	// FileRoot, when set, confines file:// downloads to this directory.
	FileRoot string `koanf:"file_root"`
}

// SecurityConfig holds the authentication dependency and admin access
// settings.
type SecurityConfig struct {
	// AuthMode is none, jwt or basic.
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL is the lifetime of tokens issued by the JWT manager.
	TokenTTL      time.Duration `koanf:"token_ttl"`
	AdminUsername string        `koanf:"admin_username"`
	AdminPassword string        `koanf:"admin_password"`
	// AdminRole is the JWT role allowed on admin routes.
	AdminRole string `koanf:"admin_role"`
}

// EventsConfig configures the session change feed.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	NATSURL string `koanf:"nats_url"`
	// Embedded starts an in-process NATS server and publishes to it.
	Embedded      bool   `koanf:"embedded"`
	EmbeddedPort  int    `koanf:"embedded_port"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
