// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Package metrics provides Prometheus instrumentation for the engine:
// ingest throughput, dictionary cardinality, aggregation latency, API
// request volume, and the optional durable tier's circuit breaker/DLQ/
// NATS fan-out health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest Metrics (§4.5)
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of /user_tags ingest attempts by outcome",
		},
		[]string{"outcome"}, // "accepted", "bad_request", "internal"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Duration of one ingest coordinator call (parse + encode + fan-out)",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Dictionary Metrics (§4.1)
	DictionaryEntriesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dictionary_entries_total",
			Help: "Current number of distinct strings interned per dimension",
		},
		[]string{"dimension"},
	)

	DictionaryWidthOverflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dictionary_width_overflows_total",
			Help: "Total number of ErrWidthOverflow faults by dimension",
		},
		[]string{"dimension"},
	)

	// Profile Store Metrics (§4.2)
	ProfileAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_appends_total",
			Help: "Total number of Profile Store ring appends by action",
		},
		[]string{"action"},
	)

	// Minute Store Metrics (§4.3)
	MinuteAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minute_appends_total",
			Help: "Total number of Minute Store column appends",
		},
	)

	MinuteBucketsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minute_buckets_active",
			Help: "Approximate number of live minute buckets across all shards",
		},
	)

	// Aggregator Metrics (§4.4)
	AggregationQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_query_duration_seconds",
			Help:    "Duration of one Aggregator.Run call",
			Buckets: prometheus.DefBuckets,
		},
	)

	AggregationMinutesScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_minutes_scanned",
			Help:    "Number of minute buckets scanned per aggregate query",
			Buckets: []float64{1, 5, 15, 60, 240, 1440, 10080},
		},
	)

	AggregationDeadlineExceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_deadline_exceeded_total",
			Help: "Total number of aggregate queries that tripped their caller deadline",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Durable Tier Metrics (§6.5) — NATS publish and DuckDB mirror of encoded events
	DurableWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durable_write_duration_seconds",
			Help:    "Duration of durable-tier writes (NATS publish / DuckDB mirror)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"}, // "nats", "duckdb"
	)

	DurableWriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durable_write_errors_total",
			Help: "Total number of failed durable-tier writes",
		},
		[]string{"sink"},
	)

	DurableLagSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "durable_tier_lag_seconds",
			Help: "Age of the oldest unflushed event awaiting the durable tier",
		},
	)

	// Circuit Breaker Metrics (gobreaker wrapping durable-tier calls)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Dead Letter Queue Metrics (durable-tier publish retries)
	DLQEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlq_entries_total",
			Help: "Current number of entries in the durable-tier dead letter queue",
		},
	)

	DLQMessagesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_messages_added_total",
			Help: "Total number of messages added to the DLQ",
		},
	)

	DLQMessagesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_messages_removed_total",
			Help: "Total number of messages removed from the DLQ after a successful retry",
		},
	)

	DLQRetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_retry_attempts_total",
			Help: "Total number of DLQ retry attempts",
		},
	)

	DLQRetrySuccesses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_retry_successes_total",
			Help: "Total number of successful DLQ retries",
		},
	)

	// NATS/Watermill Event Bus Metrics (§6.5 async fan-out)
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of encoded events published to the durable-tier bus",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed from the durable-tier bus",
		},
	)

	NATSConsumerLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nats_consumer_lag",
			Help: "Number of pending messages in the durable-tier NATS consumer",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordIngest records the outcome and duration of one ingest call.
func RecordIngest(outcome string, duration time.Duration) {
	IngestEventsTotal.WithLabelValues(outcome).Inc()
	IngestDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAggregation records one Aggregator.Run call's duration, how
// many minutes it scanned, and whether it tripped its caller deadline.
func RecordAggregation(duration time.Duration, minutesScanned int, deadlineExceeded bool) {
	AggregationQueryDuration.Observe(duration.Seconds())
	AggregationMinutesScanned.Observe(float64(minutesScanned))
	if deadlineExceeded {
		AggregationDeadlineExceededTotal.Inc()
	}
}

// RecordDurableWrite records a durable-tier write's duration and
// outcome for the named sink ("nats" or "duckdb").
func RecordDurableWrite(sink string, duration time.Duration, err error) {
	DurableWriteDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if err != nil {
		DurableWriteErrorsTotal.WithLabelValues(sink).Inc()
	}
}

// RecordDLQEntry records a message being added to the DLQ.
func RecordDLQEntry() {
	DLQMessagesAdded.Inc()
}

// RecordDLQRemoval records a message being removed from the DLQ.
func RecordDLQRemoval() {
	DLQMessagesRemoved.Inc()
}

// RecordDLQRetry records a retry attempt and its outcome.
func RecordDLQRetry(success bool) {
	DLQRetryAttempts.Inc()
	if success {
		DLQRetrySuccesses.Inc()
	}
}

// RecordNATSPublish records a message being published to the bus.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume records a message being consumed from the bus.
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// UpdateNATSConsumerLag updates the consumer lag gauge.
func UpdateNATSConsumerLag(lag int64) {
	NATSConsumerLag.Set(float64(lag))
}
