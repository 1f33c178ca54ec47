// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

/*
Package durable implements Tagora's optional, best-effort secondary tier
(§6.5): an asynchronous mirror of every encoded event into a durable,
queryable store, kept strictly off the ingest critical path.

# Overview

The in-memory core (Dictionary, Profile Store, Minute Store, Aggregator)
is authoritative and self-sufficient: it never depends on anything in
this package for correctness. internal/ingest's Coordinator fires each
successfully encoded event at a durable.Sink in a separate goroutine and
never waits for or inspects the result.

	Ingest Coordinator --fire-and-forget--> durable.Sink
	                                            |
	                                    rate limiter (x/time/rate)
	                                            |
	                              +-------------+-------------+
	                              |                           |
	                       circuit breaker                    |
	                              |                           |
	                         NATS publish                DuckDB insert
	                        (watermill-nats)          (embedded mirror table)
	                              |                           |
	                              +-------------+-------------+
	                                            |
	                               [on failure, or rate limited]
	                                            v
	                                    dead letter queue
	                                   (in-memory, retried
	                                    by a background loop)

# Components

  - Sink: implements internal/ingest.DurableSink; the single entry point
    the Coordinator calls.
  - CircuitBreaker: wraps sony/gobreaker/v2 around the NATS publish
    call so a stalled bus degrades to open-circuit rejections instead
    of blocking goroutines. NewSink also builds a breaker for the
    DuckDB side, but DuckDB inserts do not go through it.
  - RateLimiter: golang.org/x/time/rate token bucket bounding durable-
    tier throughput independent of ingest throughput.
  - DLQHandler: an in-memory dead letter queue (bounded, with
    exponential backoff retry) for events that a backend rejected or
    the rate limiter turned away.
  - NATS publisher/subscriber (build tag "nats"): async fan-out of
    encoded events over watermill-nats. NATSSubscriber can mirror
    consumed events into DuckDB, but cmd/server does not start one.
  - DuckDB sink (build tag "duckdb"): an embedded columnar mirror table
    for ad-hoc SQL analysis of ingested events outside the hot path.

# Build Tags

Both transport and storage backends are optional and build-tag gated:

	go build -tags "nats duckdb" ./cmd/server   # full durable tier
	go build ./cmd/server                        # durable tier fully stubbed

Without a tag, that backend's constructor (NewNATSPublisher or
OpenDuckDBMirror) returns ErrNATSDisabled or ErrDuckDBDisabled, so
NewSink fails if that backend's URL or path is configured. With
neither configured, Sink.Publish only applies the rate limiter, and
rate-limited events still go to the DLQ.

# Failure Handling

A publish or insert failure never propagates to the Ingest Coordinator.
Sink.Publish queues every failure in the DLQ, whatever its category;
nothing is logged. A background AutoRetryWorker replays due entries
with exponential backoff and drops an entry once a retry fails with an
error that errors.go classifies as permanent, or once the entry
reaches its retry limit. cmd/server runs the retry worker under
internal/supervisor as a restartable suture service; no NATS
subscriber is started.
*/
package durable
