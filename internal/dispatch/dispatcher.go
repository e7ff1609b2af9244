// Package dispatch moves delivered blocks onto the UI loop for rendering.
package dispatch

import (
	"context"

	"plotstream/internal/block"
	"plotstream/internal/metrics"
	"plotstream/internal/render"
	"plotstream/internal/ui"
)

// Snapshot is the window state the pipeline consults once per block.
type Snapshot struct {
	Enabled bool
	Gain    float32
}

// Dispatcher posts render jobs to a window through a non-owning handle.
type Dispatcher struct {
	handle   ui.Handle
	renderer render.Renderer
	metrics  *metrics.Metrics
}

// New returns a dispatcher rendering with r. m may be nil.
func New(h ui.Handle, r render.Renderer, m *metrics.Metrics) *Dispatcher {
	if h == nil || r == nil {
		panic("dispatch: nil handle or renderer")
	}
	return &Dispatcher{handle: h, renderer: r, metrics: m}
}

// Observe reads the enabled flag and gain from the window. It returns
// ui.ErrGone once the window's loop has ended.
func (d *Dispatcher) Observe(ctx context.Context) (Snapshot, error) {
	return ui.Read(ctx, d.handle, func(w *ui.Window) Snapshot {
		return Snapshot{Enabled: w.PlotEnabled, Gain: w.Gain()}
	})
}

// Dispatch queues one render of b and returns without waiting for it. b
// belongs to the render job from here on. Jobs run in submission order; a
// job that finds plotting disabled by the time it runs does nothing.
func (d *Dispatcher) Dispatch(b block.Block) error {
	return d.handle.Post(func(w *ui.Window) {
		if !w.PlotEnabled {
			return
		}
		img, meta := d.renderer.Render(b, w.PlotOptions())
		w.PlotFrame = img
		w.Meta = meta
		w.Frames++
		d.metrics.BlockRendered()
	})
}
