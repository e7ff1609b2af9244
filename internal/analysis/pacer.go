package analysis

import (
	"context"
	"time"
)

// Pacer limits a stream to a fixed number of samples per second. It keeps an
// absolute schedule so jitter does not accumulate, but never bursts to catch
// up after a stall.
type Pacer struct {
	period time.Duration
	next   time.Time
}

// NewPacer returns a pacer releasing blockSize samples at samplesPerSecond.
// A non-positive rate disables pacing.
func NewPacer(blockSize int, samplesPerSecond float64) *Pacer {
	if samplesPerSecond <= 0 {
		return &Pacer{}
	}
	return &Pacer{period: time.Duration(float64(blockSize) / samplesPerSecond * float64(time.Second))}
}

// Period returns the time between releases.
func (p *Pacer) Period() time.Duration { return p.period }

// Wait blocks until the next release slot or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.period <= 0 {
		return ctx.Err()
	}
	now := time.Now()
	if p.next.IsZero() || p.next.Before(now) {
		p.next = now
	}
	wait := p.next.Sub(now)
	p.next = p.next.Add(p.period)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
