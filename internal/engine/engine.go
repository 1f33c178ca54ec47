// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Package engine wires the core components (§2, §4) into a single
// object with an explicit lifecycle: construct once from a loaded
// Config, use for the lifetime of the process, then Close to release
// whatever durable-tier backends were opened alongside it.
package engine

import (
	"github.com/tagora/engine/internal/aggregator"
	"github.com/tagora/engine/internal/config"
	"github.com/tagora/engine/internal/dictionary"
	"github.com/tagora/engine/internal/durable"
	"github.com/tagora/engine/internal/ingest"
	"github.com/tagora/engine/internal/minute"
	"github.com/tagora/engine/internal/profile"
)

// Engine groups the Dictionary, Profile Store, Minute Store,
// Aggregator, and Ingest Coordinator (§2) behind the single object the
// API layer and cmd/server depend on.
type Engine struct {
	Dictionary *dictionary.Dictionary
	Profile    *profile.Store
	Minute     *minute.Store
	Aggregator *aggregator.Aggregator
	Ingest     *ingest.Coordinator

	// Durable is nil unless cfg.Durable.Enabled; it is not used
	// directly by the API layer, only by cmd/server to add its
	// background services to the supervisor tree and to Close it on
	// shutdown.
	Durable *durable.Sink
}

// New constructs the engine's core components from cfg. It never opens
// a network listener or starts a background goroutine itself — that is
// cmd/server's job, so tests can construct an Engine without binding a
// port or reaching a real NATS/DuckDB instance.
func New(cfg *config.Config) (*Engine, error) {
	dictionary.SetWidths(cfg.DictionaryWidths())

	dict := dictionary.New()
	profileStore := profile.NewWithShards(cfg.Profile.ShardCount)
	minuteStore := minute.NewWithShards(cfg.Minute.ShardCount)
	agg := aggregator.NewWithWorkers(minuteStore, cfg.Aggregator.Workers)

	var sink *durable.Sink
	if cfg.Durable.Enabled {
		durableCfg := durable.NewConfigFromEngine(durable.EngineDurableConfig{
			NATSURL:                   cfg.Durable.NATSURL,
			NATSEmbedded:              cfg.Durable.NATSEmbedded,
			DuckDBPath:                cfg.Durable.DuckDBPath,
			CircuitBreakerMaxRequests: cfg.Durable.CircuitBreakerMaxRequests,
			CircuitBreakerTimeout:     cfg.Durable.CircuitBreakerTimeout,
			RateLimitPerSec:           cfg.Durable.RateLimitPerSec,
			RateLimitBurst:            cfg.Durable.RateLimitBurst,
			DLQMaxRetries:             cfg.Durable.DLQMaxRetries,
		})

		var err error
		sink, err = durable.NewSink(durableCfg)
		if err != nil {
			return nil, err
		}
	}

	var ingestSink ingest.DurableSink
	if sink != nil {
		ingestSink = sink
	}
	coordinator := ingest.New(dict, profileStore, minuteStore, ingestSink)

	return &Engine{
		Dictionary: dict,
		Profile:    profileStore,
		Minute:     minuteStore,
		Aggregator: agg,
		Ingest:     coordinator,
		Durable:    sink,
	}, nil
}

// Close releases the durable tier's backend connections, if any were
// opened. The in-memory core holds no closeable resources.
func (e *Engine) Close() error {
	if e.Durable == nil {
		return nil
	}
	return e.Durable.Close()
}
