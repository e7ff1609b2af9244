// SPDX-License-Identifier: MIT
package ui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"plotstream/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startLoop(t *testing.T, w *Window) *Loop {
	t.Helper()
	l := NewLoop(w, 8)
	go l.Run(context.Background())
	t.Cleanup(func() {
		l.Close()
		<-l.Done()
	})
	return l
}

func TestLoop_FIFO(t *testing.T) {
	l := startLoop(t, &Window{})
	var order []int
	for i := range 20 {
		require.NoError(t, l.Post(func(*Window) { order = append(order, i) }))
	}
	got, err := Read(context.Background(), l, func(*Window) []int { return append([]int(nil), order...) })
	require.NoError(t, err)

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestLoop_GoneAfterClose(t *testing.T) {
	l := NewLoop(&Window{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()

	assert.ErrorIs(t, l.Post(func(*Window) {}), ErrGone)
	_, err := Read(context.Background(), l, func(w *Window) bool { return w.PlotEnabled })
	assert.ErrorIs(t, err, ErrGone)
}

func TestRead_ContextTimeout(t *testing.T) {
	// A loop that never runs: the task queues but nobody executes it.
	l := NewLoop(&Window{}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Read(ctx, l, func(w *Window) int { return w.Noise })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	l.Close()
}

func TestWindow(t *testing.T) {
	w := NewWindow(config.Default().Plot)
	assert.Equal(t, uint(640), w.PlotWidth)
	assert.False(t, w.PlotEnabled)

	var toggles []bool
	w.OnPlotEnableToggled = func(on bool) { toggles = append(toggles, on) }
	w.SetPlotEnabled(true)
	w.SetPlotEnabled(true)
	w.SetPlotEnabled(false)
	assert.Equal(t, []bool{true, false}, toggles)

	w.SetNoise(15)
	assert.Equal(t, float32(1.5), w.Gain())
	w.SetNoise(-3)
	assert.Equal(t, 0, w.Noise)

	opts := w.PlotOptions()
	assert.Equal(t, w.PlotHeight, opts.Height)
	assert.Equal(t, w.YAutoUpdate, opts.YAuto)
}

func TestInvoke(t *testing.T) {
	w := &Window{}
	l := startLoop(t, w)
	require.NoError(t, Invoke(context.Background(), l, func(w *Window) { w.Noise = 7 }))
	n, err := Read(context.Background(), l, func(w *Window) int { return w.Noise })
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
