// Package config loads service configuration from config.yaml with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for fathom-engine. Values come from a
// YAML file (config.yaml) or environment variables; environment
// variables override YAML for fields that support both.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Engine EngineConfig `yaml:"engine"`
	Ingest IngestConfig `yaml:"ingest"`
}

// EngineConfig tunes query execution.
type EngineConfig struct {
	// ParallelRowThreshold is the minimum row count before a parallel
	// execution request is honored.
	ParallelRowThreshold int `yaml:"parallel_row_threshold" env:"ENGINE_PARALLEL_ROW_THRESHOLD" env-default:"100000"`
	// MaxWorkers bounds the worker pool. Zero uses the CPU count.
	MaxWorkers int `yaml:"max_workers" env:"ENGINE_MAX_WORKERS" env-default:"0"`
	// ChunkSize is the target rows per parallel chunk. Zero splits
	// evenly across workers.
	ChunkSize int `yaml:"chunk_size" env:"ENGINE_CHUNK_SIZE" env-default:"0"`
}

// IngestConfig tunes parsing defaults. SampleSize and NullTokens apply
// when a request leaves the corresponding parser option unset.
type IngestConfig struct {
	// SampleSize is the number of rows examined for type inference.
	SampleSize int `yaml:"sample_size" env:"INGEST_SAMPLE_SIZE" env-default:"1000"`
	// NullTokens override the parser's null token set. Empty keeps the
	// built-in set.
	NullTokens []string `yaml:"null_tokens" env:"INGEST_NULL_TOKENS" env-separator:","`
	// MaxBodyBytes caps the request body accepted on ingest endpoints.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"INGEST_MAX_BODY_BYTES" env-default:"104857600"`
}

// Load reads configuration from config.yaml plus the environment. A
// missing config.yaml is not an error; the environment and defaults
// apply alone.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}
