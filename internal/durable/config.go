// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package durable

import "time"

// Config configures the durable tier. It is built from
// internal/config.DurableConfig by NewConfigFromEngine rather than
// loaded independently, so the engine has a single source of truth for
// configuration.
type Config struct {
	NATSURL      string
	NATSEmbedded bool

	DuckDBPath string

	CircuitBreaker CircuitBreakerConfig
	RateLimit      RateLimiterConfig
	DLQ            DLQConfig
}

// CircuitBreakerConfig holds sony/gobreaker/v2 settings for the
// durable-tier publish/insert path.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // allowed requests while half-open
	Interval         time.Duration // counter reset interval while closed
	Timeout          time.Duration // time to stay open before half-open
	FailureThreshold uint32        // consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults for the named
// breaker ("nats_publish" or "duckdb_insert").
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// RateLimiterConfig holds golang.org/x/time/rate token bucket settings
// bounding durable-tier throughput.
type RateLimiterConfig struct {
	PerSecond float64
	Burst     int
}

// DefaultRateLimiterConfig returns production defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{PerSecond: 2000, Burst: 4000}
}

// DLQConfig holds dead letter queue settings.
type DLQConfig struct {
	MaxEntries      int
	MaxRetries      int
	RetryInterval   time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	EntryTTL        time.Duration
}

// DefaultDLQConfig returns production defaults.
func DefaultDLQConfig() DLQConfig {
	return DLQConfig{
		MaxEntries:     100_000,
		MaxRetries:     10,
		RetryInterval:  5 * time.Second,
		InitialBackoff: time.Second,
		MaxBackoff:     5 * time.Minute,
		EntryTTL:       24 * time.Hour,
	}
}

// EngineDurableConfig is the narrow slice of internal/config.Config's
// DurableConfig this package needs, as a plain struct the caller fills
// in, so internal/durable never imports internal/config.
type EngineDurableConfig struct {
	NATSURL                   string
	NATSEmbedded              bool
	DuckDBPath                string
	CircuitBreakerMaxRequests uint32
	CircuitBreakerTimeout     time.Duration
	RateLimitPerSec           float64
	RateLimitBurst            int
	DLQMaxRetries             int
}

// NewConfigFromEngine builds a durable.Config from the engine's loaded
// configuration (internal/config.Config.Durable), filling in defaults
// for fields the engine config doesn't expose directly.
func NewConfigFromEngine(e EngineDurableConfig) Config {
	cb := DefaultCircuitBreakerConfig("durable_tier")
	if e.CircuitBreakerMaxRequests > 0 {
		cb.MaxRequests = e.CircuitBreakerMaxRequests
	}
	if e.CircuitBreakerTimeout > 0 {
		cb.Timeout = e.CircuitBreakerTimeout
	}

	rl := DefaultRateLimiterConfig()
	if e.RateLimitPerSec > 0 {
		rl.PerSecond = e.RateLimitPerSec
	}
	if e.RateLimitBurst > 0 {
		rl.Burst = e.RateLimitBurst
	}

	dlq := DefaultDLQConfig()
	if e.DLQMaxRetries > 0 {
		dlq.MaxRetries = e.DLQMaxRetries
	}

	return Config{
		NATSURL:        e.NATSURL,
		NATSEmbedded:   e.NATSEmbedded,
		DuckDBPath:     e.DuckDBPath,
		CircuitBreaker: cb,
		RateLimit:      rl,
		DLQ:            dlq,
	}
}
