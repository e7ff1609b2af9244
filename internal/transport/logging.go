package transport

import (
	"sync/atomic"
	"time"

	"plotstream/internal/block"
	"plotstream/internal/log"
)

// LoggingTransport logs a one-line summary of each block. The feed command
// uses it for dry runs without a network listener.
type LoggingTransport struct {
	every time.Duration
	last  atomic.Int64
	sent  atomic.Uint64
}

// NewLoggingTransport logs at most one line per interval; zero logs every
// block.
func NewLoggingTransport(every time.Duration) *LoggingTransport {
	log.Infof("transport: using logging transport")
	return &LoggingTransport{every: every}
}

// Send implements Transport.
func (lt *LoggingTransport) Send(b block.Block) error {
	n := lt.sent.Add(1)
	now := time.Now().UnixNano()
	if last := lt.last.Load(); lt.every > 0 && now-last < int64(lt.every) {
		return nil
	}
	lt.last.Store(now)
	lo, hi := b.MinMax()
	log.Infof("transport: block #%d len=%d min=%.3f max=%.3f peak=%d", n, len(b), lo, hi, b.Peak())
	return nil
}

// Sent returns the number of blocks seen.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close implements Transport.
func (lt *LoggingTransport) Close() error {
	log.Infof("transport: logging transport closed after %d blocks", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
