// Package ui holds the window state and the cooperative loop that owns it.
// Window fields may only be touched from tasks running on that loop; other
// goroutines reach the window exclusively through a Handle.
package ui

import (
	"image"

	"plotstream/internal/config"
	"plotstream/internal/render"
)

// Window is the UI-owned plot state.
type Window struct {
	// Consumed by the pipeline.
	PlotEnabled bool
	Noise       int // gain is Noise / 10
	PlotWidth   uint
	PlotHeight  uint
	YAutoUpdate bool
	YAxisMin    float64
	YAxisMax    float64

	// Produced by renders.
	PlotFrame image.Image
	Meta      render.Meta
	Frames    uint64

	// OnPlotEnableToggled runs on the loop whenever PlotEnabled changes
	// through SetPlotEnabled. It must not block.
	OnPlotEnableToggled func(enabled bool)
}

// NewWindow returns a window initialised from the plot config section.
func NewWindow(cfg config.PlotConfig) *Window {
	return &Window{
		Noise:       cfg.Noise,
		PlotWidth:   cfg.Width,
		PlotHeight:  cfg.Height,
		YAutoUpdate: cfg.YAuto,
		YAxisMin:    cfg.YMin,
		YAxisMax:    cfg.YMax,
	}
}

// Gain returns the noise gain shown by the noise control.
func (w *Window) Gain() float32 {
	return float32(w.Noise) / 10
}

// SetPlotEnabled changes the toggle and notifies the callback on a change.
func (w *Window) SetPlotEnabled(on bool) {
	if w.PlotEnabled == on {
		return
	}
	w.PlotEnabled = on
	if w.OnPlotEnableToggled != nil {
		w.OnPlotEnableToggled(on)
	}
}

// SetNoise clamps n at zero.
func (w *Window) SetNoise(n int) {
	w.Noise = max(n, 0)
}

// PlotOptions returns the render options for the current state.
func (w *Window) PlotOptions() render.Options {
	return render.Options{
		Width:  w.PlotWidth,
		Height: w.PlotHeight,
		YAuto:  w.YAutoUpdate,
		YMin:   w.YAxisMin,
		YMax:   w.YAxisMax,
	}
}
