// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"plotstream/internal/block"
	"plotstream/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collector is a Sink that keeps every block and cancels once it has want.
type collector struct {
	mu     sync.Mutex
	blocks []block.Block
	want   int
	cancel context.CancelFunc
}

func (c *collector) TryOffer(b block.Block) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) >= c.want {
		return false
	}
	c.blocks = append(c.blocks, b)
	if len(c.blocks) == c.want {
		c.cancel()
	}
	return true
}

func (c *collector) snapshot() []block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]block.Block(nil), c.blocks...)
}

// runUntil runs src until the collector saw want blocks or timeout passes.
func runUntil(t *testing.T, src Source, want int, timeout time.Duration) []block.Block {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	c := &collector{want: want, cancel: cancel}
	require.NoError(t, src.Run(ctx, c))
	return c.snapshot()
}

func TestNew_Strategies(t *testing.T) {
	tests := []struct {
		strategy string
		hasPort  bool
	}{
		{config.StrategySynthetic, true},
		{config.StrategyReplay, false},
		{config.StrategyNetwork, false},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := config.Default()
			cfg.Strategy = tt.strategy
			src, err := New(&cfg, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, src.Name())
			assert.Equal(t, tt.hasPort, src.Port() != nil)
		})
	}

	cfg := config.Default()
	cfg.Strategy = "tape"
	_, err := New(&cfg, 0, nil)
	assert.Error(t, err)
}

func TestSinkFunc(t *testing.T) {
	var got block.Block
	var s Sink = SinkFunc(func(b block.Block) bool { got = b; return true })
	assert.True(t, s.TryOffer(block.Block{1}))
	assert.Equal(t, block.Block{1}, got)
}
