// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, StrategySynthetic, cfg.Strategy)
	assert.Equal(t, FFTSize, cfg.Pipeline.BlockSize)
	assert.Equal(t, 10, cfg.Pipeline.ChannelCapacity)
	assert.Equal(t, float64(PlotRate/4), cfg.Synthetic.Frequency)
	assert.Equal(t, 100*time.Millisecond, cfg.Network.RetryDelay)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeTempConfig(t, `
strategy: replay
plot:
  width: 320
  height: 200
  noise: 5
pipeline:
  channel_capacity: 4
  terminate_timeout: 500ms
replay:
  interval: 20ms
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StrategyReplay, cfg.Strategy)
	assert.Equal(t, uint(320), cfg.Plot.Width)
	assert.Equal(t, 5, cfg.Plot.Noise)
	assert.Equal(t, 4, cfg.Pipeline.ChannelCapacity)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.TerminateTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.Replay.Interval)
	// Untouched sections keep their defaults.
	assert.Equal(t, FFTSize, cfg.Pipeline.BlockSize)
	assert.Equal(t, "ws://localhost:9001/", cfg.Network.URL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_STRATEGY", "network")
	t.Setenv("ENV_NETWORK_URL", "ws://example:1234/")
	t.Setenv("ENV_CHANNEL_CAPACITY", "3")
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_TERMINATE_TIMEOUT", "bogus")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, StrategyNetwork, cfg.Strategy)
	assert.Equal(t, "ws://example:1234/", cfg.Network.URL)
	assert.Equal(t, 3, cfg.Pipeline.ChannelCapacity)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.TerminateTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown strategy", func(c *Config) { c.Strategy = "file" }, "strategy"},
		{"block size", func(c *Config) { c.Pipeline.BlockSize = 500 }, "block_size"},
		{"capacity", func(c *Config) { c.Pipeline.ChannelCapacity = 0 }, "channel_capacity"},
		{"width", func(c *Config) { c.Plot.Width = 0 }, "plot dimensions"},
		{"manual axis", func(c *Config) { c.Plot.YAuto = false; c.Plot.YMax = -1 }, "y_max"},
		{"rate", func(c *Config) { c.Synthetic.Rate = 0 }, "synthetic.rate"},
		{"timeouts", func(c *Config) { c.Pipeline.ControlTimeout = 0 }, "timeouts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
