// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIngest(t *testing.T) {
	tests := []struct {
		name     string
		outcome  string
		duration time.Duration
	}{
		{"accepted ingest", "accepted", 2 * time.Millisecond},
		{"bad request ingest", "bad_request", 1 * time.Millisecond},
		{"internal error ingest", "internal", 5 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordIngest(tt.outcome, tt.duration)
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{"successful ingest", "POST", "/user_tags", "204", 2 * time.Millisecond},
		{"profile read", "POST", "/user_profiles", "200", 5 * time.Millisecond},
		{"aggregate read", "POST", "/aggregates", "200", 25 * time.Millisecond},
		{"bad request", "POST", "/user_tags", "400", 1 * time.Millisecond},
		{"deadline exceeded", "POST", "/aggregates", "504", 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	TrackActiveRequest(false)
}

func TestRecordAggregation(t *testing.T) {
	tests := []struct {
		name             string
		duration         time.Duration
		minutesScanned   int
		deadlineExceeded bool
	}{
		{"single minute, no deadline", 2 * time.Millisecond, 1, false},
		{"full day scan", 200 * time.Millisecond, 1440, false},
		{"tripped deadline", 5 * time.Second, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(AggregationDeadlineExceededTotal)
			RecordAggregation(tt.duration, tt.minutesScanned, tt.deadlineExceeded)
			after := testutil.ToFloat64(AggregationDeadlineExceededTotal)
			if tt.deadlineExceeded && after != before+1 {
				t.Errorf("expected deadline-exceeded counter to increment, before=%v after=%v", before, after)
			}
			if !tt.deadlineExceeded && after != before {
				t.Errorf("expected deadline-exceeded counter unchanged, before=%v after=%v", before, after)
			}
		})
	}
}

func TestRecordDurableWrite(t *testing.T) {
	tests := []struct {
		name string
		sink string
		err  error
	}{
		{"nats success", "nats", nil},
		{"duckdb success", "duckdb", nil},
		{"nats failure", "nats", errors.New("disk full")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DurableWriteErrorsTotal.WithLabelValues(tt.sink))
			RecordDurableWrite(tt.sink, time.Millisecond, tt.err)
			after := testutil.ToFloat64(DurableWriteErrorsTotal.WithLabelValues(tt.sink))
			if tt.err != nil && after != before+1 {
				t.Errorf("expected error counter to increment for %s", tt.sink)
			}
		})
	}
}

func TestDictionaryGauges(t *testing.T) {
	DictionaryEntriesTotal.WithLabelValues("product").Set(120)
	DictionaryEntriesTotal.WithLabelValues("brand").Set(12)
	DictionaryWidthOverflowsTotal.WithLabelValues("country").Inc()
}

func TestProfileAndMinuteCounters(t *testing.T) {
	ProfileAppendsTotal.WithLabelValues("VIEW").Inc()
	ProfileAppendsTotal.WithLabelValues("BUY").Inc()
	MinuteAppendsTotal.Inc()
	MinuteBucketsActive.Set(42)
}

func TestDLQMetrics(t *testing.T) {
	RecordDLQEntry()
	RecordDLQRetry(true)
	RecordDLQRetry(false)
	RecordDLQRemoval()
	DLQEntriesTotal.Set(3)
}

func TestNATSMetrics(t *testing.T) {
	RecordNATSPublish()
	RecordNATSConsume()
	UpdateNATSConsumerLag(7)
}

func TestCircuitBreakerMetrics(t *testing.T) {
	cbName := "duckdb_mirror"
	CircuitBreakerState.WithLabelValues(cbName).Set(0)
	CircuitBreakerState.WithLabelValues(cbName).Set(2)
	CircuitBreakerRequests.WithLabelValues(cbName, "success").Inc()
	CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "closed", "open").Inc()
}

func TestAPIRateLimitHits(t *testing.T) {
	for _, endpoint := range []string{"/user_tags", "/aggregates"} {
		APIRateLimitHits.WithLabelValues(endpoint).Inc()
	}
}

func TestAppMetrics(t *testing.T) {
	AppInfo.WithLabelValues("0.1.0", "go1.25.5").Set(1)
	AppUptime.Set(3600)
	AppUptime.Add(60)
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	const goroutines = 64
	const perGoroutine = 50

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				RecordIngest("accepted", time.Duration(j)*time.Microsecond)
				RecordAggregation(time.Duration(j)*time.Microsecond, j%60+1, false)
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		IngestEventsTotal,
		IngestDuration,
		DictionaryEntriesTotal,
		DictionaryWidthOverflowsTotal,
		ProfileAppendsTotal,
		MinuteAppendsTotal,
		MinuteBucketsActive,
		AggregationQueryDuration,
		AggregationMinutesScanned,
		AggregationDeadlineExceededTotal,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		DurableWriteDuration,
		DurableWriteErrorsTotal,
		DurableLagSeconds,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerTransitions,
		DLQEntriesTotal,
		DLQMessagesAdded,
		DLQMessagesRemoved,
		DLQRetryAttempts,
		DLQRetrySuccesses,
		NATSMessagesPublished,
		NATSMessagesConsumed,
		NATSConsumerLag,
		AppInfo,
		AppUptime,
	}

	for _, m := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)
		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric %T has no descriptors", m)
		}
	}
}

func BenchmarkRecordIngest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordIngest("accepted", time.Millisecond)
	}
}

func BenchmarkRecordAggregation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAggregation(time.Millisecond, 60, false)
	}
}
