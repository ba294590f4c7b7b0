package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.CacheLocalSize)
	assert.Equal(t, time.Hour, cfg.CacheDefaultTTL)
	assert.Equal(t, GeoHybrid, cfg.GeoMode)
	assert.True(t, cfg.WorkerPoolSize > 0)
	assert.Equal(t, DefaultCategoryWeights(), cfg.CategoryWeights)
}

func TestQueueForTable(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cases := []struct {
		priority   string
		timeout    time.Duration
		resultTTL  time.Duration
		maxRetries int
	}{
		{"premium", 10 * time.Minute, 24 * time.Hour, 5},
		{"standard", 5 * time.Minute, 12 * time.Hour, 3},
		{"batch", 30 * time.Minute, 48 * time.Hour, 2},
	}
	for _, tt := range cases {
		qc := cfg.QueueFor(tt.priority)
		assert.Equal(t, tt.timeout, qc.JobTimeout, tt.priority)
		assert.Equal(t, tt.resultTTL, qc.ResultTTL, tt.priority)
		assert.Equal(t, tt.maxRetries, qc.MaxRetries, tt.priority)
	}
}

func TestCircuitForFallsBackToDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cc := cfg.CircuitFor("geo")
	assert.Equal(t, 5, cc.Threshold)
	assert.Equal(t, 30*time.Second, cc.Timeout)
	assert.Equal(t, 2, cc.SuccessesNeeded)

	cfg.Circuit["geo"] = CircuitConfig{Threshold: 2, Timeout: time.Second}
	cc = cfg.CircuitFor("geo")
	assert.Equal(t, 2, cc.Threshold)
	assert.Equal(t, 2, cc.SuccessesNeeded) // inherited default
}

func TestWeightsOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  skills: 0.5\nfeatures:\n  skills_semantic: 2.0\n"), 0o600))

	t.Setenv("WEIGHTS_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.CategoryWeights["skills"], 1e-9)
	assert.InDelta(t, 2.0, cfg.FeatureWeights["skills_semantic"], 1e-9)
	// untouched categories keep defaults
	assert.InDelta(t, 0.20, cfg.CategoryWeights["cultural"], 1e-9)
}

func TestAlgorithmEnabled(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AlgorithmEnabled("rule"))
	assert.True(t, cfg.AlgorithmEnabled("ML"))
	assert.False(t, cfg.AlgorithmEnabled("quantum"))
}
