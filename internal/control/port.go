// SPDX-License-Identifier: MIT
//
// Package control implements the request/acknowledge channel used to push a
// changed runtime parameter into a live sample source.
//
// A Port is held by the caller (the lifecycle controller), the matching
// Endpoint by the source. Update sends one request into the source's own
// goroutine and waits for its reply, so at most one update is ever in
// flight per port.
package control

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"plotstream/internal/scalar"
)

var (
	// ErrRejected is returned when the value's tag has no coercion.
	ErrRejected = errors.New("control: unsupported value tag")
	// ErrClosed is returned when the endpoint side has gone away.
	ErrClosed = errors.New("control: endpoint closed")
)

// Request is one pending update, served by the endpoint's owner.
type Request struct {
	Value scalar.Value
	reply chan error
}

// Reply acknowledges (nil) or rejects the request. It must be called exactly
// once; it never blocks.
func (r Request) Reply(err error) {
	r.reply <- err
}

// Gain coerces the request value to float32, returning ErrRejected when the
// tag is not convertible.
func (r Request) Gain() (float32, error) {
	if r.Value == nil {
		return 0, errors.Wrap(ErrRejected, "no value")
	}
	f, ok := scalar.Float32(r.Value)
	if !ok {
		return 0, errors.Wrapf(ErrRejected, "tag %q", r.Value.Tag())
	}
	return f, nil
}

// Port is the caller side.
type Port struct {
	requests chan Request
	closed   <-chan struct{}
	inflight chan struct{}
}

// Endpoint is the source side.
type Endpoint struct {
	requests chan Request
	closed   chan struct{}
	once     sync.Once
}

// NewPort returns a connected port/endpoint pair.
func NewPort() (*Port, *Endpoint) {
	reqs := make(chan Request)
	closed := make(chan struct{})
	return &Port{
			requests: reqs,
			closed:   closed,
			inflight: make(chan struct{}, 1),
		}, &Endpoint{
			requests: reqs,
			closed:   closed,
		}
}

// Update delivers v to the endpoint and waits for the acknowledgement.
// Concurrent callers are serialised. The returned error is nil on ack,
// wraps ErrRejected for an unsupported tag, ErrClosed when the endpoint is
// gone, or the context error when no ack arrived in time.
func (p *Port) Update(ctx context.Context, v scalar.Value) error {
	select {
	case p.inflight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.inflight }()

	req := Request{Value: v, reply: make(chan error, 1)}
	select {
	case p.requests <- req:
	case <-p.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-p.closed:
		// The endpoint may have replied just before closing.
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Requests yields pending updates. It is never closed; select on Done too.
func (e *Endpoint) Requests() <-chan Request {
	return e.requests
}

// Done is closed once Close has been called.
func (e *Endpoint) Done() <-chan struct{} {
	return e.closed
}

// Close marks the endpoint gone; pending and future updates fail with
// ErrClosed. Safe to call more than once.
func (e *Endpoint) Close() {
	e.once.Do(func() { close(e.closed) })
}
