// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched,
// in priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tagora/config.yaml",
	"/etc/tagora/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the
// config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every field set to its built-in
// default. Defaults are applied first, then overridden by config file
// and environment variables (§6.4).
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                  "0.0.0.0",
			Port:                  8080,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
			ShutdownTimeout:       15 * time.Second,
			CORSOrigins:           []string{"*"},
			IngestRateLimitPerSec: 5000,
		},
		Dictionary: DictionaryConfig{
			ProductWidthBits:  32,
			BrandWidthBits:    16,
			CategoryWidthBits: 16,
			CountryWidthBits:  8,
			OriginWidthBits:   16,
		},
		Profile: ProfileConfig{
			MaxTags:    200,
			ShardCount: 64,
		},
		Minute: MinuteConfig{
			ShardCount: 32,
		},
		Aggregator: AggregatorConfig{
			Workers:       16,
			QueryDeadline: 5 * time.Second,
		},
		Durable: DurableConfig{
			Enabled:                   false,
			NATSURL:                   "nats://127.0.0.1:4222",
			NATSEmbedded:              true,
			DuckDBPath:                "./data/tagora.duckdb",
			CircuitBreakerMaxRequests: 5,
			CircuitBreakerTimeout:     30 * time.Second,
			RateLimitPerSec:           2000,
			RateLimitBurst:            500,
			DLQMaxRetries:             5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads Config through the three-layer Koanf pipeline:
// defaults -> optional YAML file -> environment variables, then
// validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches CONFIG_PATH, then DefaultConfigPaths, for an
// existing file. Returns "" if none are found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths that must be parsed as
// comma-separated slices when sourced from an environment variable.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values into
// slices for the paths in sliceConfigPaths. Necessary because env vars
// always arrive as strings, but some fields are []string.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config
// paths, e.g. SERVER_PORT -> server.port, DICTIONARY_PRODUCT_WIDTH_BITS
// -> dictionary.product_width_bits.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	prefixes := []string{
		"server", "dictionary", "profile", "minute", "aggregator", "durable", "logging",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix+"_") {
			rest := strings.TrimPrefix(key, prefix+"_")
			return prefix + "." + rest
		}
	}
	return ""
}

// GetKoanfInstance returns a fresh Koanf instance for advanced usage
// (hot-reload, custom sources, tests).
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile watches path for changes and invokes callback on
// each write. The caller is responsible for synchronizing access to
// any Config it swaps in from callback.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
