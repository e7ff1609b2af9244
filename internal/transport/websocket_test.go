package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"plotstream/internal/block"
	"plotstream/internal/config"
	"plotstream/internal/source"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitClients(t *testing.T, wst *WebSocketTransport, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return wst.Clients() == n }, 5*time.Second, time.Millisecond)
}

func TestWebSocketTransport_Broadcast(t *testing.T) {
	wst := NewWebSocketTransport("")
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()
	defer wst.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	a := dial(t, url)
	defer a.Close()
	b := dial(t, url)
	defer b.Close()
	waitClients(t, wst, 2)

	require.NoError(t, wst.Send(block.Block{1, 2, 3, 4}))

	for _, conn := range []*websocket.Conn{a, b} {
		typ, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, typ)
		assert.Equal(t, []byte{
			0x00, 0x00, 0x80, 0x3F,
			0x00, 0x00, 0x00, 0x40,
			0x00, 0x00, 0x40, 0x40,
			0x00, 0x00, 0x80, 0x40,
		}, data)
	}

	a.Close()
	waitClients(t, wst, 1)

	require.NoError(t, wst.Close())
	assert.ErrorIs(t, wst.Send(block.Block{1}), ErrClosed)
}

// The network source reads exactly what the feed server publishes.
func TestWebSocketTransport_FeedsNetworkSource(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, wst.Start())
	defer wst.Close()

	src := source.NewNetwork("ws://"+wst.Addr()+"/", 10*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan block.Block, 16)
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, source.SinkFunc(func(b block.Block) bool {
			select {
			case got <- b:
			default:
			}
			return true
		}))
	}()

	waitClients(t, wst, 1)
	want := block.Block{0.5, 1.5, 2.5}
	sink := Sink{Transport: wst}
	require.True(t, sink.TryOffer(want))

	select {
	case b := <-got:
		assert.Equal(t, want, b)
	case <-ctx.Done():
		t.Fatal("no block received")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport(0)
	var tr Transport = lt
	require.NoError(t, tr.Send(block.Block{1, 5, 2}))
	require.NoError(t, tr.Send(block.Block{}))
	assert.Equal(t, uint64(2), lt.Sent())
	assert.NoError(t, tr.Close())

	// A synthetic source can publish straight into a transport.
	cfg := config.Default()
	cfg.Synthetic.Rate = 1e9
	opts, err := source.SyntheticOptionsFrom(&cfg)
	require.NoError(t, err)
	syn, err := source.NewSynthetic(opts, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, syn.Run(ctx, Sink{Transport: lt}))
	assert.Greater(t, lt.Sent(), uint64(2))
}
