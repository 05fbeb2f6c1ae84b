package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Version)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 100000, cfg.Engine.ParallelRowThreshold)
	assert.Equal(t, 1000, cfg.Ingest.SampleSize)
	assert.Equal(t, "127.0.0.1:8090", cfg.Addr())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ENGINE_MAX_WORKERS", "8")
	t.Setenv("INGEST_SAMPLE_SIZE", "50")
	t.Setenv("INGEST_NULL_TOKENS", "-,n/a")

	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 8, cfg.Engine.MaxWorkers)
	assert.Equal(t, 50, cfg.Ingest.SampleSize)
	assert.Equal(t, []string{"-", "n/a"}, cfg.Ingest.NullTokens)
}
