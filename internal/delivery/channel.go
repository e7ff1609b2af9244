// SPDX-License-Identifier: MIT
//
// Package delivery is the bounded, lossy hand-off between one sample producer
// and one consumer. The producer never waits for space: a block offered to a
// full channel is dropped. The consumer suspends only while the channel is
// empty.
package delivery

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"plotstream/internal/block"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
)

// DefaultCapacity is the channel size used when none is configured.
const DefaultCapacity = 10

// ErrClosed is returned by Receive once the producer closed the channel and
// every buffered block has been consumed.
var ErrClosed = errors.New("delivery: channel closed")

// Sender is the producer side. It is not safe for more than one producer.
type Sender struct {
	ch      chan block.Block
	once    sync.Once
	metrics *metrics.Metrics
}

// Receiver is the consumer side.
type Receiver struct {
	ch      chan block.Block
	metrics *metrics.Metrics
}

// New creates a channel with the given capacity. A non-positive capacity
// falls back to DefaultCapacity. m may be nil.
func New(capacity int, m *metrics.Metrics) (*Sender, *Receiver) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ch := make(chan block.Block, capacity)
	return &Sender{ch: ch, metrics: m}, &Receiver{ch: ch, metrics: m}
}

// TryOffer inserts b without blocking and reports whether it was accepted.
// A full channel drops b.
func (s *Sender) TryOffer(b block.Block) bool {
	select {
	case s.ch <- b:
		s.metrics.BlockOffered()
		s.metrics.SetQueueLength(len(s.ch))
		return true
	default:
		s.metrics.BlocksDropped(metrics.DropFull, 1)
		log.Debugf("delivery: channel full (%d), dropping block of %d samples", cap(s.ch), len(b))
		return false
	}
}

// Len reports the number of buffered blocks.
func (s *Sender) Len() int { return len(s.ch) }

// Cap reports the channel capacity.
func (s *Sender) Cap() int { return cap(s.ch) }

// Close ends the stream. The sender must not be used afterwards.
func (s *Sender) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Receive returns the oldest buffered block, waiting while none is
// available.
func (r *Receiver) Receive(ctx context.Context) (block.Block, error) {
	select {
	case b, ok := <-r.ch:
		if !ok {
			return nil, ErrClosed
		}
		r.metrics.SetQueueLength(len(r.ch))
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports the number of buffered blocks.
func (r *Receiver) Len() int { return len(r.ch) }

// Coalesce returns the newest of first and whatever is immediately ready on
// pending, along with how many older blocks were discarded. It never waits.
func Coalesce(first block.Block, pending <-chan block.Block) (latest block.Block, discarded int) {
	latest = first
	for {
		select {
		case b, ok := <-pending:
			if !ok {
				return latest, discarded
			}
			latest = b
			discarded++
		default:
			return latest, discarded
		}
	}
}
