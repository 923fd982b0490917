// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
/*
Package supervisor runs the long-running services of the process under a
suture v4 supervisor tree.

Tree Layout:

	RootSupervisor ("oteapi-services")
	├── StorageSupervisor ("storage-layer")
	│   └── CacheHealthService
	├── EventsSupervisor ("events-layer")
	│   └── EventFeedService (if OTEAPI_EVENTS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with backoff inside their own layer. Supervisor
events are logged through sutureslog onto the zerolog logger.

Usage Example:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddStorageService(services.NewCacheHealthService(manager, cfg.Cache.HealthInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}
*/
package supervisor
