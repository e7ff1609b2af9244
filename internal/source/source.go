// SPDX-License-Identifier: MIT
//
// Package source produces the endless stream of magnitude blocks that feeds
// the plot. Three interchangeable strategies exist (a synthetic DSP
// pipeline, a cyclic replay of a fixed dataset and a WebSocket feed) and
// one is picked at runtime from configuration.
package source

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"plotstream/internal/block"
	"plotstream/internal/config"
	"plotstream/internal/control"
	"plotstream/internal/metrics"
)

// Sink accepts produced blocks without blocking. The delivery channel's
// Sender is the usual implementation.
type Sink interface {
	TryOffer(b block.Block) bool
}

// Source is one sample producer.
type Source interface {
	// Run produces blocks into out until ctx is cancelled. Cancellation is
	// not an error. Run may only be called once.
	Run(ctx context.Context, out Sink) error
	// Port returns the gain control port, or nil when the source ignores
	// control updates.
	Port() *control.Port
	// Name identifies the strategy in logs.
	Name() string
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(block.Block) bool

// TryOffer calls f(b).
func (f SinkFunc) TryOffer(b block.Block) bool { return f(b) }

// New builds the source selected by cfg.Strategy. gain is the initial noise
// gain read from the UI; m may be nil.
func New(cfg *config.Config, gain float32, m *metrics.Metrics) (Source, error) {
	switch cfg.Strategy {
	case config.StrategySynthetic:
		opts, err := SyntheticOptionsFrom(cfg)
		if err != nil {
			return nil, err
		}
		return NewSynthetic(opts, gain, m)
	case config.StrategyReplay:
		data, err := LoadDataset(cfg.Replay.File, cfg.Pipeline.BlockSize)
		if err != nil {
			return nil, err
		}
		return NewReplay(data, cfg.Pipeline.BlockSize, cfg.Replay.Interval)
	case config.StrategyNetwork:
		return NewNetwork(cfg.Network.URL, cfg.Network.RetryDelay, m), nil
	default:
		return nil, errors.Errorf("unknown source strategy %q", cfg.Strategy)
	}
}

// sleep waits for d or until ctx is done, reporting false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
