// SPDX-License-Identifier: MIT
package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"plotstream/internal/control"
	"plotstream/internal/delivery"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
	"plotstream/internal/scalar"
)

// instance is one pipeline: a source, its delivery channel and its control
// port, plus the consumer loop driving them.
type instance struct {
	c      *Controller
	gen    uint64
	id     xid.ID
	log    *logrus.Entry
	ctx    context.Context // cancelled to leave the consumer loop
	cancel context.CancelFunc
	done   chan struct{} // closed on Terminated
	state  atomic.Int32
}

func newInstance(c *Controller, gen uint64) *instance {
	ctx, cancel := context.WithCancel(c.ctx)
	id := xid.New()
	return &instance{
		c:      c,
		gen:    gen,
		id:     id,
		log:    log.WithFields(log.Fields{"instance": id.String(), "gen": gen}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// State returns the instance's current state.
func (in *instance) State() State {
	return State(in.state.Load())
}

func (in *instance) stop() {
	in.cancel()
}

func (in *instance) transition(s State) {
	in.state.Store(int32(s))
	in.log.Debugf("pipeline %s", s)
	in.c.publish(Transition{Generation: in.gen, Instance: in.id, State: s})
}

func (in *instance) run() {
	defer close(in.done)
	defer in.cancel()

	c := in.c
	in.transition(Starting)
	c.opts.Metrics.InstanceStarted()

	// The only state carried over from earlier instances is the gain, read
	// fresh from the window.
	snap, err := c.disp.Observe(in.ctx)
	if err != nil {
		in.log.Debugf("window unavailable at start: %v", err)
		in.finish(nil, nil)
		return
	}
	src, err := c.factory(snap.Gain)
	if err != nil {
		in.log.Errorf("cannot build source: %v", err)
		in.finish(nil, nil)
		return
	}

	tx, rx := delivery.New(c.opts.ChannelCapacity, c.opts.Metrics)
	srcCtx, cancelSrc := context.WithCancel(c.ctx)
	srcDone := make(chan error, 1)
	go func() {
		defer tx.Close()
		srcDone <- src.Run(srcCtx, tx)
	}()

	in.log.Infof("%s source started (gain %g)", src.Name(), snap.Gain)
	in.transition(Running)
	in.consume(rx, src.Port(), snap.Gain)
	in.finish(cancelSrc, srcDone)
}

// consume is the Running state: one iteration per delivered block.
func (in *instance) consume(rx *delivery.Receiver, port *control.Port, sent float32) {
	c := in.c
	for {
		b, err := rx.Receive(in.ctx)
		if err != nil {
			if errors.Is(err, delivery.ErrClosed) {
				in.log.Warn("source stopped producing")
			}
			return
		}
		if c.superseded(in.gen) {
			return
		}

		snap, err := c.disp.Observe(in.ctx)
		if err != nil || !snap.Enabled {
			return
		}
		if err := c.disp.Dispatch(b); err != nil {
			return
		}

		if port == nil || snap.Gain == sent {
			continue
		}
		ctx, cancel := context.WithTimeout(in.ctx, c.opts.ControlTimeout)
		err = port.Update(ctx, scalar.F32(snap.Gain))
		cancel()
		switch {
		case err == nil:
			sent = snap.Gain
			c.opts.Metrics.ControlUpdate(metrics.ControlAcked)
		case errors.Is(err, control.ErrRejected):
			// Not retried; the next differing gain tries again.
			sent = snap.Gain
			c.opts.Metrics.ControlUpdate(metrics.ControlRejected)
			in.log.Warnf("gain update rejected: %v", err)
		default:
			c.opts.Metrics.ControlUpdate(metrics.ControlFailed)
			if in.ctx.Err() == nil {
				in.log.Errorf("gain update failed: %v", err)
			}
			return
		}
	}
}

// finish is Draining -> Terminated: cancel the source and wait for it, up
// to the terminate timeout. A source that does not stop in time is
// detached and left to exit on its own.
func (in *instance) finish(cancelSrc context.CancelFunc, srcDone <-chan error) {
	in.transition(Draining)
	start := time.Now()
	forced := false

	if cancelSrc != nil {
		cancelSrc()
		timer := time.NewTimer(in.c.opts.TerminateTimeout)
		select {
		case err := <-srcDone:
			if err != nil {
				in.log.Warnf("source exited with error: %v", err)
			}
		case <-timer.C:
			forced = true
			in.log.Warnf("source still running after %s, detaching", in.c.opts.TerminateTimeout)
		}
		timer.Stop()
	}

	in.c.opts.Metrics.Terminated(time.Since(start), forced)
	in.transition(Terminated)
}
