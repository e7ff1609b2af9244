// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"plotstream/internal/config"
	"plotstream/internal/control"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
	"plotstream/internal/wire"
)

// Network reads blocks from a WebSocket feed. Connection failures and drops
// are retried forever after a flat delay.
type Network struct {
	url     string
	retry   time.Duration
	dialer  *websocket.Dialer
	metrics *metrics.Metrics
}

var _ Source = (*Network)(nil)

// NewNetwork returns a feed client for url.
func NewNetwork(url string, retry time.Duration, m *metrics.Metrics) *Network {
	return &Network{
		url:   url,
		retry: retry,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   4096,
		},
		metrics: m,
	}
}

func (n *Network) Name() string        { return config.StrategyNetwork }
func (n *Network) Port() *control.Port { return nil }

// Run connects, streams and reconnects until ctx is cancelled.
func (n *Network) Run(ctx context.Context, out Sink) error {
	for {
		err := n.session(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		log.Debugf("network: %v, retrying in %s", err, n.retry)
		n.metrics.Reconnect()
		if !sleep(ctx, n.retry) {
			return nil
		}
	}
}

// session runs one connection until it fails or ctx ends.
func (n *Network) session(ctx context.Context, out Sink) error {
	conn, _, err := n.dialer.DialContext(ctx, n.url, nil)
	if err != nil {
		return errors.Wrapf(err, "dial %s", n.url)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log.Infof("network: connected to %s", n.url)
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		b, ok := wire.Decode(typ, data)
		if !ok {
			n.metrics.MalformedMessage()
			log.Debugf("network: non-binary message (type %d), substituting zeros", typ)
		}
		out.TryOffer(b)
	}
}
