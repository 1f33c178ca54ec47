// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

/*
Package supervisor provides process supervision for Tagora's durable tier using suture v4.

This package implements a hierarchical supervisor tree that manages the lifecycle
of the background services the durable tier runs alongside the in-memory core.
It provides Erlang/OTP-style supervision with automatic restart, failure
isolation, and graceful shutdown, independent of the HTTP-serving core: the
in-memory Dictionary/Profile Store/Minute Store/Aggregator never depend on
anything in this tree, so a crash here never blocks ingest or aggregate reads.

# Overview

The supervisor tree organizes services into three layers for failure isolation:

	RootSupervisor ("tagora-engine")
	├── DataSupervisor ("data-layer")
	│   (no services: the in-memory core needs no supervised
	│    background services)
	├── MessagingSupervisor ("messaging-layer")
	│   └── durable.AutoRetryWorker (DLQ retry loop, only when the
	│       durable tier is enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

cmd/server builds this tree on every start. No NATS subscriber is
added to it.

This hierarchy ensures that:
  - DLQ retry failures don't impact API availability
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup, as in cmd/server/main.go:

	import (
	    "log/slog"
	    "github.com/tagora/engine/internal/supervisor"
	)

	func main() {
	    logger := slog.Default()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    // Add services to appropriate layers
	    tree.AddAPIService(httpServerService)
	    tree.AddMessagingService(dlqRetryWorker) // durable tier only

	    // Start the tree (blocks until context canceled)
	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("Supervisor stopped: %v", err)
	    }
	}

Background operation:

	// Start in background
	errChan := tree.ServeBackground(ctx)

	// Do other setup...

	// Wait for shutdown
	if err := <-errChan; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,          // Failures before backoff
	    FailureDecay:     30.0,         // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's production-ready defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Failure Handling

The supervisor uses a failure counter with exponential decay:

1. Each service failure increments the counter
2. Counter decays exponentially over time (FailureDecay seconds)
3. When counter exceeds FailureThreshold, supervisor enters backoff
4. During backoff, restarts are delayed by FailureBackoff duration
5. If failures continue, the child supervisor may be restarted by parent

Example failure scenarios:

	# Single crash - immediate restart
	Service crashes -> Counter: 1 -> Restart immediately

	# Rapid crashes - backoff triggered
	Service crashes 5x in 10s -> Counter: 5+ -> Wait 15s before restart

	# Isolated failures - counter decays
	Service crashes once, stable for 60s -> Counter: ~0.13 -> Normal restart

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# Build Tags

Optional durable-tier components are controlled by build tags:

	-tags nats   # Enable NATS/JetStream services

Without this tag, the NATS constructors return ErrNATSDisabled (see
internal/durable's nats_stub.go), so a binary built without it links
and runs as long as no NATS URL is configured.

# What Is NOT Supervised

DuckDB is intentionally not supervised:
  - It's an embedded library, not a long-running service
  - Connections are managed by the durable package
  - Crashes in DuckDB would require process restart anyway

The in-memory core (Dictionary, Profile Store, Minute Store, Aggregator) is
never supervised here: it has no background goroutines that can crash
independently of the HTTP handler invoking them, and ingest must keep
working even if every durable-tier service in this tree is down.

# Debugging Shutdown Issues

If services don't stop within the timeout:

	// Get report of unstopped services
	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines
  - Mutex deadlocks during shutdown

# Performance Characteristics

The supervisor tree has minimal overhead:
  - Service check: <1us per iteration
  - Restart: ~1ms (goroutine spawn)
  - Memory: ~1KB per supervised service
  - No polling (event-driven via channels)

# Thread Safety

The SupervisorTree is safe for concurrent use:
  - Services can be added from any goroutine
  - Remove operations are synchronized
  - Multiple services can crash simultaneously

# See Also

  - internal/durable: the services this tree supervises
  - github.com/thejerf/suture/v4: underlying library
*/
package supervisor
