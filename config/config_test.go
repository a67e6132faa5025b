package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/data/work", cfg.DataDir)
	assert.Equal(t, "/data/out", cfg.DestDir)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "auto", cfg.Prefer)
	assert.Equal(t, 4, cfg.RetryMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Hour, cfg.MaxRemoteWait)
	assert.Equal(t, 10, cfg.MaxPollFailures)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKERS", "8")
	t.Setenv("DATA_DIR", "/tmp/fl")
	t.Setenv("PROCESSOR_PREFER", "fallback")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("SUCCESS_MARKER", "DONE_TOKEN")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "/tmp/fl", cfg.DataDir)
	assert.Equal(t, "fallback", cfg.Prefer)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "DONE_TOKEN", cfg.SuccessMarker)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("non-numeric workers", func(t *testing.T) {
		t.Setenv("WORKERS", "many")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("POLL_INTERVAL", "5 seconds")
		_, err := Load()
		assert.Error(t, err)
	})
}
