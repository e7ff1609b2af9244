// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotstream/internal/analysis"
	"plotstream/internal/block"
	"plotstream/internal/config"
	"plotstream/internal/control"
	"plotstream/internal/scalar"
)

func fastOptions() SyntheticOptions {
	return SyntheticOptions{
		BlockSize:  config.FFTSize,
		Frequency:  config.PlotRate / 4,
		SampleRate: config.PlotRate,
		Rate:       0, // unpaced
		Seed:       1,
	}
}

func TestSynthetic_ZeroGainMatchesTone(t *testing.T) {
	src, err := NewSynthetic(fastOptions(), 0, nil)
	require.NoError(t, err)

	// Noiseless reference spectrum.
	tone, _ := analysis.NewTone(config.PlotRate/4, config.PlotRate)
	tr, _ := analysis.NewTransform(config.FFTSize, analysis.None, false)
	spec, err := tr.Forward(nil, tone.Next(config.FFTSize))
	require.NoError(t, err)
	want := analysis.Magnitude(spec)
	require.InDelta(t, config.FFTSize, want[128], 1e-3)

	blocks := runUntil(t, src, 8, 5*time.Second)
	require.Len(t, blocks, 8)
	for i, b := range blocks {
		require.Len(t, b, config.FFTSize)
		for j := range b {
			assert.InDelta(t, want[j], b[j], 1e-3, "block %d bin %d", i, j)
		}
	}
}

func TestSynthetic_ControlPort(t *testing.T) {
	src, err := NewSynthetic(fastOptions(), 0, nil)
	require.NoError(t, err)
	port := src.Port()
	require.NotNil(t, port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, SinkFunc(func(block.Block) bool { return true })) }()

	uctx, ucancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ucancel()

	require.NoError(t, port.Update(uctx, scalar.F64(1.5)))
	require.NoError(t, port.Update(uctx, scalar.U32(2)))
	err = port.Update(uctx, scalar.Unsupported{Name: "i8"})
	assert.ErrorIs(t, err, control.ErrRejected)
	// The ack orders the gain write before this read.
	assert.Equal(t, float32(2), src.noise.Gain())

	require.NoError(t, port.Update(uctx, scalar.Null{}))
	assert.Equal(t, float32(0), src.noise.Gain())

	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, port.Update(uctx, scalar.F32(1)), control.ErrClosed)
}

func TestSynthetic_Paced(t *testing.T) {
	opts := fastOptions()
	opts.Rate = float64(opts.BlockSize) * 100 // 10ms per block
	src, err := NewSynthetic(opts, 0.5, nil)
	require.NoError(t, err)

	start := time.Now()
	blocks := runUntil(t, src, 5, 5*time.Second)
	require.Len(t, blocks, 5)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSynthetic_RunOnce(t *testing.T) {
	src, err := NewSynthetic(fastOptions(), 0, nil)
	require.NoError(t, err)
	_ = runUntil(t, src, 1, time.Second)

	err = src.Run(context.Background(), SinkFunc(func(block.Block) bool { return true }))
	assert.Error(t, err)
}

func TestSynthetic_PacedUpdatesNeverTimeOut(t *testing.T) {
	opts := fastOptions()
	opts.BlockSize = 64
	opts.Rate = float64(opts.BlockSize) * 40 // 25ms per block
	src, err := NewSynthetic(opts, 0, nil)
	require.NoError(t, err)
	port := src.Port()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, SinkFunc(func(block.Block) bool { return true })) }()

	// Let the pipeline fill so the noise stage is held back by the pacer.
	time.Sleep(100 * time.Millisecond)

	var slowest time.Duration
	for i := range 60 {
		uctx, ucancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		start := time.Now()
		err := port.Update(uctx, scalar.F32(float32(i%10)/10))
		ucancel()
		require.NoError(t, err, "update %d", i)
		slowest = max(slowest, time.Since(start))
		time.Sleep(5 * time.Millisecond)
	}
	assert.Less(t, slowest, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
