// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Package durable mirrors ingested events into a best-effort durable
// tier (NATS bus, DuckDB columnar store) entirely off the ingest
// critical path. Nothing in internal/ingest, internal/profile, or
// internal/minute ever blocks on, or depends for correctness on, this
// package succeeding.
package durable

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tagora/engine/internal/models"
)

// Sink implements internal/ingest.DurableSink. It is constructed once
// at startup and handed to internal/ingest.New; every call arrives on
// the coordinator's own fan-out goroutine, never the request
// goroutine, so Sink.Publish itself stays synchronous internally.
type Sink struct {
	limiter    *rate.Limiter
	publishCB  *gobreaker.CircuitBreaker[interface{}]
	insertCB   *gobreaker.CircuitBreaker[interface{}]
	publisher  *NATSPublisher
	mirror     *DuckDBMirror
	dlq        *DLQHandler
	writeTimeout time.Duration
}

// NewSink wires a durable tier sink from cfg. Either natsURL or
// duckdbPath (or both) may be empty, in which case that half of the
// durable tier is skipped for every event; the DLQ still records
// failures from whichever half is active.
func NewSink(cfg Config) (*Sink, error) {
	s := &Sink{
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst),
		writeTimeout: 2 * time.Second,
	}

	dlq, err := NewDLQHandler(cfg.DLQ)
	if err != nil {
		return nil, err
	}
	s.dlq = dlq

	if cfg.NATSURL != "" {
		publishCfg := cfg.CircuitBreaker
		publishCfg.Name = "nats_publish"
		s.publishCB = NewCircuitBreaker(publishCfg)

		pub, err := NewNATSPublisher(cfg.NATSURL, s.publishCB)
		if err != nil {
			return nil, err
		}
		s.publisher = pub
	}

	if cfg.DuckDBPath != "" {
		insertCfg := cfg.CircuitBreaker
		insertCfg.Name = "duckdb_insert"
		s.insertCB = NewCircuitBreaker(insertCfg)

		mirror, err := OpenDuckDBMirror(cfg.DuckDBPath)
		if err != nil {
			return nil, err
		}
		s.mirror = mirror
	}

	return s, nil
}

// Publish fans an encoded event out to every configured durable
// backend. It never returns an error to the caller — the
// internal/ingest.DurableSink contract is fire-and-forget — but any
// failure is recorded in the dead letter queue for later retry.
func (s *Sink) Publish(encoded models.EncodedEvent, action models.Action) {
	if !s.limiter.Allow() {
		s.dlq.Add(encoded, action, NewRetryableError("durable tier rate limited", nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, encoded, action); err != nil {
			s.dlq.Add(encoded, action, err)
		}
	}

	if s.mirror != nil {
		if err := s.mirror.Insert(ctx, encoded, action); err != nil {
			s.dlq.Add(encoded, action, err)
		}
	}
}

// RetryOne redelivers a single DLQ entry by replaying it against every
// configured backend (an entry does not record which backend failed)
// and returns the last error. It is the RetryHandler passed to
// AutoRetryWorker.
func (s *Sink) RetryOne(ctx context.Context, entry *DLQEntry) error {
	var lastErr error
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, entry.Event, entry.Action); err != nil {
			lastErr = err
		}
	}
	if s.mirror != nil {
		if err := s.mirror.Insert(ctx, entry.Event, entry.Action); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// DLQ exposes the sink's dead letter queue so internal/supervisor can
// run an AutoRetryWorker against it.
func (s *Sink) DLQ() *DLQHandler { return s.dlq }

// Close releases every backend connection held by the sink.
func (s *Sink) Close() error {
	var firstErr error
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
