// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package config provides centralized configuration management for the
engine.

This package loads, validates, and parses configuration for the core
engine (dictionary id widths, Profile/Minute Store sharding, Aggregator
worker pool) and the ambient HTTP/durable/logging layers that wrap it.

# Configuration Sources

Configuration loads in three layers, later layers winning:

 1. Built-in defaults (defaultConfig in koanf.go)
 2. An optional YAML config file (config.yaml, or CONFIG_PATH)
 3. Environment variables

# Configuration Structure

  - ServerConfig: bind address, timeouts, CORS, ingest rate limiting
  - DictionaryConfig: per-dimension id width bound (§3.2)
  - ProfileConfig: MAX_TAGS and shard count for the Profile Store
  - MinuteConfig: shard count for the Minute Store
  - AggregatorConfig: worker pool size and per-query deadline
  - DurableConfig: the optional NATS/DuckDB secondary tier
  - LoggingConfig: zerolog level/format

# Environment Variables

Variable names mirror the koanf path with underscores, e.g.
DICTIONARY_PRODUCT_WIDTH_BITS -> dictionary.product_width_bits,
AGGREGATOR_QUERY_DEADLINE -> aggregator.query_deadline.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	dictionary.SetWidths(cfg.DictionaryWidths())
	dict := dictionary.New()
*/
package config
