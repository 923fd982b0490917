// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services
/*
Package services provides suture.Service wrappers for the long-running
parts of the process.

Each wrapper turns a component's own lifecycle (ListenAndServe, a ticker,
a close-on-exit resource) into suture's context-aware Serve:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Available Services:

  - HTTPServerService: runs *http.Server and drains it on cancel
  - CacheHealthService: pings the cache on an interval and exports
    the cache_healthy gauge
  - EventFeedService: closes the event publisher and stops the embedded
    NATS server on shutdown

Every service implements fmt.Stringer so supervisor events name it.
*/
package services
