// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// providing realistic testing environments that closely match production.
//
// # NATS Container
//
// A durable-tier integration test can run a real NATS server in a
// container to exercise the on-the-wire watermill-nats transport (no
// test in this repository does so):
//
//	func TestDurablePublish(t *testing.T) {
//	    SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    container, err := nats.Run(ctx, "nats:2.10-alpine")
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer CleanupContainer(t, ctx, container)
//
//	    url, _ := container.ConnectionString(ctx)
//	    cb := durable.NewCircuitBreaker(durable.DefaultCircuitBreakerConfig("nats_publish"))
//	    pub, err := durable.NewNATSPublisher(url, cb)
//	    // ...
//	}
//
// # Benefits Over Mocks
//
// Using real containers provides several advantages:
//   - Tests validate actual API contracts
//   - No mock drift (mocks getting out of sync with real API)
//   - Tests run against production-equivalent services
//   - Reduces maintenance burden (one seed database vs many mock functions)
//
// # CI Considerations
//
// These tests require Docker and network access. In CI:
//   - Self-hosted runners have Docker pre-installed
//   - Container images are cached between runs
//   - Tests are skipped gracefully if Docker is unavailable
//
// # Network Requirements
//
// First run may need to download container images. Subsequent runs use cached images.
package testinfra
