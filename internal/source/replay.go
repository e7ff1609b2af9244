package source

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"plotstream/internal/block"
	"plotstream/internal/config"
	"plotstream/internal/control"
)

// Replay loops over a fixed dataset in non-overlapping chunks, restarting at
// the first chunk after the last one. A trailing partial chunk is ignored.
type Replay struct {
	chunks   []block.Block
	interval time.Duration
}

var _ Source = (*Replay)(nil)

// NewReplay splits data into chunks of size samples. At least one full
// chunk is required.
func NewReplay(data []float32, size int, interval time.Duration) (*Replay, error) {
	if size <= 0 {
		return nil, errors.Errorf("replay: chunk size must be positive, got %d", size)
	}
	n := len(data) / size
	if n == 0 {
		return nil, errors.Errorf("replay: dataset of %d samples is shorter than one chunk of %d", len(data), size)
	}
	chunks := make([]block.Block, n)
	for i := range chunks {
		chunks[i] = block.Block(data[i*size : (i+1)*size]).Clone()
	}
	return &Replay{chunks: chunks, interval: interval}, nil
}

func (r *Replay) Name() string        { return config.StrategyReplay }
func (r *Replay) Port() *control.Port { return nil }

// Len returns the number of chunks in one cycle.
func (r *Replay) Len() int { return len(r.chunks) }

// Run offers one chunk per interval, forever.
func (r *Replay) Run(ctx context.Context, out Sink) error {
	for i := 0; ; i = (i + 1) % len(r.chunks) {
		if ctx.Err() != nil {
			return nil
		}
		// Each offer gets its own copy; the receiver owns it.
		out.TryOffer(r.chunks[i].Clone())
		if !sleep(ctx, r.interval) {
			return nil
		}
	}
}
