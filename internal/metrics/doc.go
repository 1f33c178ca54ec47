// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements comprehensive application instrumentation using the Prometheus
client library, exposing metrics for the in-memory engine's ingest/read path and the
optional durable tier's background pipeline.

# Overview

The package provides metrics for:
  - Ingest throughput and latency (the Ingest Coordinator's fan-out)
  - Dictionary cardinality per dimension and width-overflow faults
  - Profile Store and Minute Store append volume
  - Aggregator query latency, minutes scanned, and deadline trips
  - API request latency and rate-limit rejections
  - Durable-tier write latency/errors, circuit breaker state, DLQ depth, NATS lag

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Ingest Metrics (§4.5):
  - ingest_events_total: Ingest attempts by outcome (counter)
    Labels: outcome (accepted, bad_request, internal)
  - ingest_duration_seconds: Duration of one ingest coordinator call (histogram)

Dictionary Metrics (§4.1):
  - dictionary_entries_total: Distinct strings interned per dimension (gauge)
    Labels: dimension
  - dictionary_width_overflows_total: ErrWidthOverflow faults (counter)
    Labels: dimension

Profile/Minute Store Metrics (§4.2, §4.3):
  - profile_appends_total: Profile Store ring appends (counter)
    Labels: action
  - minute_appends_total: Minute Store column appends (counter)
  - minute_buckets_active: Approximate live minute buckets across shards (gauge)

Aggregator Metrics (§4.4, §5):
  - aggregation_query_duration_seconds: One Aggregator.Run call (histogram)
  - aggregation_minutes_scanned: Minutes scanned per query (histogram)
  - aggregation_deadline_exceeded_total: Queries that tripped their deadline (counter)

API Metrics:
  - api_requests_total: API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: API request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active API requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Durable Tier Metrics (§6.5):
  - durable_write_duration_seconds: NATS publish / DuckDB mirror write latency (histogram)
    Labels: sink
  - durable_write_errors_total: Failed durable-tier writes (counter)
    Labels: sink
  - durable_tier_lag_seconds: Age of oldest unflushed event awaiting the durable tier (gauge)

Circuit Breaker Metrics (gobreaker wrapping durable-tier calls):
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Requests through a breaker (counter)
    Labels: name, result
  - circuit_breaker_state_transitions_total: State transitions (counter)
    Labels: name, from_state, to_state

Dead Letter Queue Metrics:
  - dlq_entries_total: Current DLQ depth (gauge)
  - dlq_messages_added_total / dlq_messages_removed_total (counter)
  - dlq_retry_attempts_total / dlq_retry_successes_total (counter)

NATS/Watermill Event Bus Metrics:
  - nats_messages_published_total / nats_messages_consumed_total (counter)
  - nats_consumer_lag: Pending messages in the durable-tier consumer (gauge)

# Usage Example

Basic setup in cmd/server/main.go:

	import (
	    "github.com/tagora/engine/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	    http.Handle("/metrics", promhttp.Handler())

	    metrics.RecordIngest("accepted", 2*time.Millisecond)
	}

Recording API metrics with middleware (see internal/middleware/prometheus.go):

	func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	    return func(w http.ResponseWriter, r *http.Request) {
	        metrics.TrackActiveRequest(true)
	        defer metrics.TrackActiveRequest(false)

	        start := time.Now()
	        rw := &metricsResponseWriter{ResponseWriter: w, statusCode: 200}
	        next(rw, r)

	        metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode), time.Since(start))
	    }
	}

Recording durable-tier write metrics:

	func (s *DuckDBSink) Write(ctx context.Context, b minute.Snapshot) error {
	    start := time.Now()
	    err := s.write(ctx, b)
	    metrics.RecordDurableWrite("duckdb", time.Since(start), err)
	    return err
	}

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'tagora-engine'
	    static_configs:
	      - targets: ['localhost:8080']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# Example PromQL queries

	# Ingest rate by outcome
	rate(ingest_events_total[5m])

	# Aggregator p95 latency
	histogram_quantile(0.95, rate(aggregation_query_duration_seconds_bucket[5m]))

	# Fraction of aggregate queries that hit their deadline
	rate(aggregation_deadline_exceeded_total[5m]) / rate(aggregation_query_duration_seconds_count[5m])

	# Durable-tier write error rate by sink
	rate(durable_write_errors_total[5m])

# Performance Impact

Metrics collection overhead:
  - Counter increment: ~100ns per operation
  - Histogram observation: ~500ns per operation
  - Memory overhead: ~5KB per metric time series
  - Total overhead: <1% CPU, <10MB RAM for typical workloads

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

  - Endpoint labels are the fixed route templates (/user_tags, /user_profiles,
    /aggregates), never raw request paths with cookie/tag values
  - Dictionary dimension labels are the fixed five dimensions (product, brand,
    category, country, origin), never the interned string values themselves
  - Circuit breaker / durable-tier sink labels are fixed constants

# See Also

  - internal/middleware: HTTP middleware with metrics integration
  - internal/aggregator: Aggregator query metrics
  - internal/durable: durable-tier write/circuit-breaker/DLQ/NATS metrics
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
  - https://prometheus.io/docs/practices/instrumentation/: Instrumentation guide
*/
package metrics
