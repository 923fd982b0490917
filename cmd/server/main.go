// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/oteapi-services/internal/api"
	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/config"
	"github.com/tomtom215/oteapi-services/internal/dispatch"
	"github.com/tomtom215/oteapi-services/internal/events"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
	"github.com/tomtom215/oteapi-services/internal/registry"
	"github.com/tomtom215/oteapi-services/internal/session"
	"github.com/tomtom215/oteapi-services/internal/strategy"
	"github.com/tomtom215/oteapi-services/internal/strategy/builtin"
	"github.com/tomtom215/oteapi-services/internal/supervisor"
	"github.com/tomtom215/oteapi-services/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // sequential startup
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level := cfg.Logging.Level
	if cfg.Server.Debug {
		level = "debug"
	}
	logging.Init(logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("address", cfg.Server.Address()).
		Str("prefix", cfg.Server.Prefix).
		Str("cache_type", cfg.Cache.Type).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting OTEAPI Services")
	warnInsecureSettings(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := cache.NewManager(cfg.Cache.ToCache())
	if err := manager.Init(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := manager.Terminate(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()
	health := manager.Health(ctx)
	logging.Info().
		Str("cache_type", string(health.Type)).
		Str("cache_address", health.Address).
		Bool("fallback", health.Fallback).
		Msg("Cache initialized")

	publisher, eventServer, err := initEvents(&cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event feed")
	}

	sessions := session.NewStore(manager, session.WithEvents(publisher))
	resources := registry.New(manager, sessions)

	strategies := strategy.NewRegistry()
	err = builtin.Register(strategies, builtin.Deps{
		Cache:            manager,
		HTTPClient:       &http.Client{Timeout: cfg.Strategies.HTTPTimeout},
		DownloadRate:     rate.Limit(cfg.Strategies.DownloadRate),
		DownloadBurst:    cfg.Strategies.DownloadBurst,
		MaxDownloadBytes: cfg.Strategies.MaxDownloadBytes,
		FileRoot:         cfg.Strategies.FileRoot,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to register strategies")
	}
	for t, infos := range strategies.List() {
		logging.Debug().Str("type", string(t)).Int("count", len(infos)).Msg("Strategies registered")
	}

	handler := api.NewHandler(api.Deps{
		Cache:      manager,
		Sessions:   sessions,
		Resources:  resources,
		Dispatcher: dispatch.New(resources, sessions, strategies),
		Strategies: strategies,
		Version:    version,
		APIName:    cfg.Server.APIName,
		AuthMode:   cfg.Security.AuthMode,
	})
	router, err := api.NewRouter(cfg, handler)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build router")
	}

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.Timeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddStorageService(services.NewCacheHealthService(manager, cfg.Cache.HealthInterval))
	if cfg.Events.Enabled {
		tree.AddEventsService(services.NewEventFeedService(publisher, eventServer))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	watchLogLevel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("address", server.Addr).Msg("Serving")
	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	logging.Info().Msg("Stopped")
}

// initEvents returns the session change publisher. With events disabled it
// is a no-op; with Embedded set an in-process NATS server is started first
// and returned so it can be stopped on shutdown.
func initEvents(cfg *config.EventsConfig) (events.Publisher, services.EventServer, error) {
	if !cfg.Enabled {
		return events.Noop{}, nil, nil
	}

	url := cfg.NATSURL
	var embedded *events.EmbeddedServer
	if cfg.Embedded {
		var err error
		embedded, err = events.NewEmbeddedServer("127.0.0.1", cfg.EmbeddedPort)
		if err != nil {
			return nil, nil, err
		}
		url = embedded.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	publisher, err := events.NewNATSPublisher(events.Config{
		URL:           url,
		SubjectPrefix: cfg.SubjectPrefix,
	})
	if err != nil {
		if embedded != nil {
			embedded.Shutdown()
		}
		return nil, nil, err
	}
	logging.Info().Str("subject_prefix", cfg.SubjectPrefix).Msg("Session events enabled")

	if embedded == nil {
		return publisher, nil, nil
	}
	return publisher, embedded, nil
}

// watchLogLevel reloads the log level when the config file changes. Other
// settings need a restart.
func watchLogLevel() {
	path := config.FindConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid configuration change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch disabled")
	}
}

func warnInsecureSettings(cfg *config.Config) {
	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("Authentication is disabled (OTEAPI_AUTH_MODE=none); admin routes are open to every caller")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is disabled")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set OTEAPI_CORS_ORIGINS")
	}
	if cfg.Server.IncludeRedisAdmin {
		logging.Warn().Msg("GET /redis/{key} is mounted and exposes raw cache values to admins")
	}
}
