// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"plotstream/pkg/bitint"
)

// Source strategies.
const (
	StrategySynthetic = "synthetic"
	StrategyReplay    = "replay"
	StrategyNetwork   = "network"
)

const (
	// FFTSize is the default block length.
	FFTSize = 512
	// PlotRate is the default synthetic sample rate and throughput.
	PlotRate = FFTSize * 4
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`  // Log destination while the terminal UI owns the screen.
	Strategy  string          `yaml:"strategy"`  // Sample source: "synthetic", "replay" or "network".
	Plot      PlotConfig      `yaml:"plot"`      // Initial window state.
	Pipeline  PipelineConfig  `yaml:"pipeline"`  // Delivery and lifecycle tuning.
	Synthetic SyntheticConfig `yaml:"synthetic"` // Synthetic generator settings.
	Replay    ReplayConfig    `yaml:"replay"`    // Cyclic replay settings.
	Network   NetworkConfig   `yaml:"network"`   // Network feed client settings.
	Feed      FeedConfig      `yaml:"feed"`      // Feed server settings.
	Metrics   MetricsConfig   `yaml:"metrics"`   // Prometheus endpoint.
}

// PlotConfig holds the window state the UI starts with.
type PlotConfig struct {
	Enabled bool    `yaml:"enabled"` // Start with plotting on.
	Width   uint    `yaml:"width"`   // Plot width in pixels.
	Height  uint    `yaml:"height"`  // Plot height in pixels.
	YAuto   bool    `yaml:"y_auto"`  // Scale the y axis from each block.
	YMin    float64 `yaml:"y_min"`   // Manual y axis lower bound.
	YMax    float64 `yaml:"y_max"`   // Manual y axis upper bound.
	Noise   int     `yaml:"noise"`   // Noise control; gain is noise / 10.
}

// PipelineConfig holds delivery channel and lifecycle settings.
type PipelineConfig struct {
	BlockSize        int           `yaml:"block_size"`        // Samples per block (power of two).
	ChannelCapacity  int           `yaml:"channel_capacity"`  // Delivery channel capacity.
	ControlTimeout   time.Duration `yaml:"control_timeout"`   // Max wait for a gain update ack.
	TerminateTimeout time.Duration `yaml:"terminate_timeout"` // Max wait for a draining source.
}

// SyntheticConfig holds settings for the generated signal.
type SyntheticConfig struct {
	Frequency  float64 `yaml:"frequency"`   // Tone frequency in Hz.
	SampleRate float64 `yaml:"sample_rate"` // Tone sample rate in Hz.
	Rate       float64 `yaml:"rate"`        // Throughput limit in samples per second.
	Seed       uint64  `yaml:"seed"`        // Noise seed.
	NoiseMode  string  `yaml:"noise_mode"`  // "complex" or "real".
	Window     string  `yaml:"window"`      // FFT window name, empty for none.
	Shift      bool    `yaml:"shift"`       // Centre the zero-frequency bin.
}

// ReplayConfig holds settings for the cyclic replay source.
type ReplayConfig struct {
	File     string        `yaml:"file"`     // WAV file; empty uses the built-in dataset.
	Interval time.Duration `yaml:"interval"` // Delay after each chunk.
}

// NetworkConfig holds settings for the network feed client.
type NetworkConfig struct {
	URL        string        `yaml:"url"`         // WebSocket endpoint.
	RetryDelay time.Duration `yaml:"retry_delay"` // Flat delay between connection attempts.
}

// FeedConfig holds settings for the feed server.
type FeedConfig struct {
	Addr      string  `yaml:"addr"`       // Listen address.
	Rate      float64 `yaml:"rate"`       // Samples per second streamed.
	Gain      float32 `yaml:"gain"`       // Noise gain of the streamed signal.
	NoiseMode string  `yaml:"noise_mode"` // "complex" or "real".
	Shift     bool    `yaml:"shift"`      // Centre the zero-frequency bin.
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Listen address, empty disables the endpoint.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Strategy: StrategySynthetic,
		Plot: PlotConfig{
			Width:  640,
			Height: 360,
			YAuto:  true,
			YMin:   0,
			YMax:   600,
		},
		Pipeline: PipelineConfig{
			BlockSize:        FFTSize,
			ChannelCapacity:  10,
			ControlTimeout:   time.Second,
			TerminateTimeout: 2 * time.Second,
		},
		Synthetic: SyntheticConfig{
			Frequency:  PlotRate / 4,
			SampleRate: PlotRate,
			Rate:       PlotRate,
			Seed:       1,
			NoiseMode:  "complex",
		},
		Replay: ReplayConfig{
			Interval: 100 * time.Millisecond,
		},
		Network: NetworkConfig{
			URL:        "ws://localhost:9001/",
			RetryDelay: 100 * time.Millisecond,
		},
		Feed: FeedConfig{
			Addr:      ":9001",
			Rate:      FFTSize * 10,
			Gain:      100.0 / 30,
			NoiseMode: "real",
			Shift:     true,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("plotstream.yaml", "config.yaml"). If no file is found,
// it uses built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"plotstream.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategySynthetic, StrategyReplay, StrategyNetwork:
	default:
		return fmt.Errorf("strategy %q is not one of synthetic, replay, network", c.Strategy)
	}
	if !bitint.IsPowerOfTwo(c.Pipeline.BlockSize) {
		return fmt.Errorf("pipeline.block_size must be a power of 2, got %d", c.Pipeline.BlockSize)
	}
	if c.Pipeline.ChannelCapacity <= 0 {
		return fmt.Errorf("pipeline.channel_capacity must be positive, got %d", c.Pipeline.ChannelCapacity)
	}
	if c.Pipeline.ControlTimeout <= 0 || c.Pipeline.TerminateTimeout <= 0 {
		return fmt.Errorf("pipeline timeouts must be positive")
	}
	if c.Plot.Width == 0 || c.Plot.Height == 0 {
		return fmt.Errorf("plot dimensions must be positive, got %dx%d", c.Plot.Width, c.Plot.Height)
	}
	if !c.Plot.YAuto && c.Plot.YMax <= c.Plot.YMin {
		return fmt.Errorf("plot.y_max (%g) must exceed plot.y_min (%g)", c.Plot.YMax, c.Plot.YMin)
	}
	if c.Plot.Noise < 0 {
		return fmt.Errorf("plot.noise must not be negative, got %d", c.Plot.Noise)
	}
	if c.Synthetic.SampleRate <= 0 {
		return fmt.Errorf("synthetic.sample_rate must be positive, got %g", c.Synthetic.SampleRate)
	}
	if c.Synthetic.Rate <= 0 {
		return fmt.Errorf("synthetic.rate must be positive, got %g", c.Synthetic.Rate)
	}
	if c.Replay.Interval < 0 {
		return fmt.Errorf("replay.interval must not be negative")
	}
	if c.Strategy == StrategyNetwork && c.Network.URL == "" {
		return fmt.Errorf("network.url must be set for the network strategy")
	}
	if c.Network.RetryDelay <= 0 {
		return fmt.Errorf("network.retry_delay must be positive")
	}
	return nil
}

// applyEnvOverrides lets ENV_* variables replace loaded values. Unparseable
// values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok && val != "" {
		cfg.LogLevel = val
	}
	// ENV_STRATEGY
	if val, ok := os.LookupEnv("ENV_STRATEGY"); ok && val != "" {
		cfg.Strategy = val
	}
	// ENV_NETWORK_URL
	if val, ok := os.LookupEnv("ENV_NETWORK_URL"); ok && val != "" {
		cfg.Network.URL = val
	}
	// ENV_CHANNEL_CAPACITY
	if val, ok := os.LookupEnv("ENV_CHANNEL_CAPACITY"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Pipeline.ChannelCapacity = n
		}
	}
	// ENV_TERMINATE_TIMEOUT
	if val, ok := os.LookupEnv("ENV_TERMINATE_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Pipeline.TerminateTimeout = dur
		}
	}
	// ENV_METRICS_ADDR
	if val, ok := os.LookupEnv("ENV_METRICS_ADDR"); ok {
		cfg.Metrics.Addr = val
	}
}
