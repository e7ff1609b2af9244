// SPDX-License-Identifier: MIT
//
// Package lifecycle starts, runs and tears down pipeline instances in
// response to the window's plot toggle.
//
// An instance moves Starting -> Running -> Draining -> Terminated and is
// never reused. Each start bumps a generation counter; a new instance only
// enters Starting after the previous one has reached Terminated, and an
// instance whose generation is no longer current drains at its next block.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"plotstream/internal/config"
	"plotstream/internal/dispatch"
	"plotstream/internal/metrics"
	"plotstream/internal/source"
)

// Factory builds the source for a new instance from the current UI gain.
type Factory func(gain float32) (source.Source, error)

// SourceFactory returns a Factory for the strategy configured in cfg.
func SourceFactory(cfg *config.Config, m *metrics.Metrics) Factory {
	return func(gain float32) (source.Source, error) {
		return source.New(cfg, gain, m)
	}
}

// Options tunes a Controller.
type Options struct {
	ChannelCapacity  int
	ControlTimeout   time.Duration
	TerminateTimeout time.Duration
	Metrics          *metrics.Metrics
	// OnTransition, when set, is called from instance goroutines on every
	// state change. It must be safe for concurrent use and must not block.
	OnTransition func(Transition)
}

// OptionsFrom maps the pipeline config section to Options.
func OptionsFrom(cfg *config.Config, m *metrics.Metrics) Options {
	return Options{
		ChannelCapacity:  cfg.Pipeline.ChannelCapacity,
		ControlTimeout:   cfg.Pipeline.ControlTimeout,
		TerminateTimeout: cfg.Pipeline.TerminateTimeout,
		Metrics:          m,
	}
}

// Controller owns at most one live pipeline instance at a time.
type Controller struct {
	opts    Options
	factory Factory
	disp    *dispatch.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	gen     atomic.Uint64
	mu      sync.Mutex
	current *instance
	closed  bool
}

// New returns an idle controller. Install Toggled as the window's
// OnPlotEnableToggled callback to drive it.
func New(factory Factory, disp *dispatch.Dispatcher, opts Options) *Controller {
	if factory == nil || disp == nil {
		panic("lifecycle: nil factory or dispatcher")
	}
	if opts.ControlTimeout <= 0 {
		opts.ControlTimeout = time.Second
	}
	if opts.TerminateTimeout <= 0 {
		opts.TerminateTimeout = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:    opts,
		factory: factory,
		disp:    disp,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Toggled reacts to the plot toggle. It runs on the UI loop and never
// blocks: enabling schedules a new instance, disabling asks the current one
// to drain.
func (c *Controller) Toggled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !enabled {
		if c.current != nil {
			c.current.stop()
		}
		return
	}
	gen := c.gen.Add(1)
	c.wg.Add(1)
	go c.start(gen)
}

// State reports the current instance's state, or Idle before the first one.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Idle
	}
	return c.current.State()
}

// Close drains the current instance and waits for every instance goroutine,
// or until ctx is done.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "lifecycle: close")
	}
}

func (c *Controller) start(gen uint64) {
	defer c.wg.Done()

	c.mu.Lock()
	if gen != c.gen.Load() || c.closed {
		// Superseded before it ran; the newer start owns the window.
		c.mu.Unlock()
		return
	}
	prev := c.current
	c.mu.Unlock()
	if prev != nil && prev.gen < gen {
		prev.stop()
		<-prev.done
	}

	c.mu.Lock()
	if gen != c.gen.Load() || c.closed {
		// A later toggle took over while we waited.
		c.mu.Unlock()
		return
	}
	in := newInstance(c, gen)
	c.current = in
	c.mu.Unlock()

	in.run()
}

func (c *Controller) superseded(gen uint64) bool {
	return c.gen.Load() != gen
}

func (c *Controller) publish(t Transition) {
	c.opts.Metrics.SetState(int(t.State))
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(t)
	}
}
