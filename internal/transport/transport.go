// Package transport publishes produced blocks to outside consumers. The feed
// server streams them to WebSocket clients in the network wire format.
package transport

import "plotstream/internal/block"

// Transport defines a generic interface for publishing blocks.
// Implementations must be safe for concurrent use and must not block.
type Transport interface {
	Send(b block.Block) error
	Close() error
}

// Sink adapts a Transport to the source.Sink interface so a sample source
// can publish directly.
type Sink struct {
	Transport Transport
}

// TryOffer sends b and reports whether the transport accepted it.
func (s Sink) TryOffer(b block.Block) bool {
	return s.Transport.Send(b) == nil
}
