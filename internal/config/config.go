// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/tagora/engine/internal/dictionary"
)

// Config holds all application configuration loaded from environment
// variables and an optional config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all settings
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting via environment
//
// Configuration Categories:
//
//  1. Core engine: Dictionary id widths, Profile Store retention and
//     sharding, Minute Store sharding, Aggregator worker pool and
//     query deadline.
//  2. Server: bind address, timeouts, CORS, ingest rate limiting.
//  3. Durable: the optional best-effort secondary tier (NATS/DuckDB).
//     Never on the ingest critical path.
//  4. Logging: zerolog level/format.
//
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Dictionary DictionaryConfig `koanf:"dictionary"`
	Profile    ProfileConfig    `koanf:"profile"`
	Minute     MinuteConfig     `koanf:"minute"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Durable    DurableConfig    `koanf:"durable"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP bind address, timeouts, and ingress policy.
//
// Environment Variables:
//   - SERVER_HOST, SERVER_PORT
//   - SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT, SERVER_SHUTDOWN_TIMEOUT
//   - SERVER_CORS_ORIGINS (comma-separated)
//   - SERVER_INGEST_RATE_LIMIT_PER_SEC
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	CORSOrigins []string `koanf:"cors_origins"`

	// IngestRateLimitPerSec bounds POST /user_tags throughput per
	// client, enforced by go-chi/httprate at the router level.
	IngestRateLimitPerSec int `koanf:"ingest_rate_limit_per_sec"`
}

// DictionaryConfig sets the per-dimension id width bound (§3.2). These
// are the run's fixed schema: a dimension that would exceed its width
// fails the run with an Internal error rather than silently truncating.
//
// Environment Variables:
//   - DICTIONARY_PRODUCT_WIDTH_BITS (default 32)
//   - DICTIONARY_BRAND_WIDTH_BITS, DICTIONARY_CATEGORY_WIDTH_BITS,
//     DICTIONARY_ORIGIN_WIDTH_BITS (default 16)
//   - DICTIONARY_COUNTRY_WIDTH_BITS (default 8)
type DictionaryConfig struct {
	ProductWidthBits  int `koanf:"product_width_bits"`
	BrandWidthBits    int `koanf:"brand_width_bits"`
	CategoryWidthBits int `koanf:"category_width_bits"`
	CountryWidthBits  int `koanf:"country_width_bits"`
	OriginWidthBits   int `koanf:"origin_width_bits"`
}

// ProfileConfig carries the Profile Store's shard count (§4.2). MaxTags
// is loaded and validated as positive but read nowhere else: the
// store's retention cap and the API's limit cap are both the constant
// profile.MaxTags (200).
//
// Environment Variables:
//   - PROFILE_MAX_TAGS (default 200)
//   - PROFILE_SHARD_COUNT (default 64)
type ProfileConfig struct {
	MaxTags    int `koanf:"max_tags"`
	ShardCount int `koanf:"shard_count"`
}

// MinuteConfig tunes the Minute Store's shard count (§4.3).
//
// Environment Variables:
//   - MINUTE_SHARD_COUNT (default 32)
type MinuteConfig struct {
	ShardCount int `koanf:"shard_count"`
}

// AggregatorConfig tunes the Aggregator's worker pool (§4.4, §5).
// QueryDeadline is loaded but nothing applies it: an aggregate query
// is bounded only by its request's context.
//
// Environment Variables:
//   - AGGREGATOR_WORKERS (default 16)
//   - AGGREGATOR_QUERY_DEADLINE (default 5s)
type AggregatorConfig struct {
	Workers       int           `koanf:"workers"`
	QueryDeadline time.Duration `koanf:"query_deadline"`
}

// DurableConfig configures the optional best-effort secondary tier
// (§6.5). When Enabled is false, the Ingest Coordinator's DurableSink
// is a no-op and none of these fields are consulted.
//
// Environment Variables:
//   - DURABLE_ENABLED (default false)
//   - DURABLE_NATS_URL, DURABLE_NATS_EMBEDDED
//   - DURABLE_DUCKDB_PATH
//   - DURABLE_CIRCUIT_BREAKER_MAX_REQUESTS
//   - DURABLE_RATE_LIMIT_PER_SEC, DURABLE_RATE_LIMIT_BURST
//   - DURABLE_DLQ_MAX_RETRIES
type DurableConfig struct {
	Enabled bool `koanf:"enabled"`

	NATSURL      string `koanf:"nats_url"`
	NATSEmbedded bool   `koanf:"nats_embedded"`

	DuckDBPath string `koanf:"duckdb_path"`

	CircuitBreakerMaxRequests uint32        `koanf:"circuit_breaker_max_requests"`
	CircuitBreakerTimeout     time.Duration `koanf:"circuit_breaker_timeout"`

	RateLimitPerSec float64 `koanf:"rate_limit_per_sec"`
	RateLimitBurst  int     `koanf:"rate_limit_burst"`

	DLQMaxRetries int `koanf:"dlq_max_retries"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOGGING_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOGGING_FORMAT: json, console (default: json)
//   - LOGGING_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration via Koanf (defaults -> optional file ->
// environment) and validates the result.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Validate checks the loaded configuration for internal consistency.
// It does not second-guess operator-chosen dictionary widths beyond
// requiring them to be positive and no wider than 32 bits.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Profile.MaxTags <= 0 {
		return fmt.Errorf("config: profile.max_tags must be positive")
	}
	if c.Profile.ShardCount <= 0 {
		return fmt.Errorf("config: profile.shard_count must be positive")
	}
	if c.Minute.ShardCount <= 0 {
		return fmt.Errorf("config: minute.shard_count must be positive")
	}
	if c.Aggregator.Workers <= 0 {
		return fmt.Errorf("config: aggregator.workers must be positive")
	}
	for name, width := range map[string]int{
		"product":  c.Dictionary.ProductWidthBits,
		"brand":    c.Dictionary.BrandWidthBits,
		"category": c.Dictionary.CategoryWidthBits,
		"country":  c.Dictionary.CountryWidthBits,
		"origin":   c.Dictionary.OriginWidthBits,
	} {
		if width <= 0 || width > 32 {
			return fmt.Errorf("config: dictionary.%s_width_bits=%d must be in (0, 32]", name, width)
		}
	}
	if c.Durable.Enabled {
		if c.Durable.NATSURL == "" && !c.Durable.NATSEmbedded {
			return fmt.Errorf("config: durable.enabled requires nats_url or nats_embedded")
		}
	}
	return nil
}

// DictionaryWidths converts the loaded DictionaryConfig into the
// dictionary.Widths shape consumed by dictionary.SetWidths.
func (c *Config) DictionaryWidths() dictionary.Widths {
	return dictionary.Widths{
		dictionary.Product:  c.Dictionary.ProductWidthBits,
		dictionary.Brand:    c.Dictionary.BrandWidthBits,
		dictionary.Category: c.Dictionary.CategoryWidthBits,
		dictionary.Country:  c.Dictionary.CountryWidthBits,
		dictionary.Origin:   c.Dictionary.OriginWidthBits,
	}
}
