package transport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"plotstream/internal/block"
	"plotstream/internal/log"
	"plotstream/internal/wire"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport: closed")

// client is one connected consumer. Its queue holds a single frame: a slow
// client drops frames instead of falling behind.
type client struct {
	conn  *websocket.Conn
	queue chan []byte
	done  chan struct{}
}

// WebSocketTransport serves blocks to any number of WebSocket clients as
// binary messages of little-endian float32 values.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clientsMu sync.Mutex
	clients   map[*client]struct{}
	closed    bool
	server    *http.Server
	listener  net.Listener
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates a transport that will listen on addr once
// Start is called. The handler can also be mounted elsewhere via Handler.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	return &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Feed consumers are local tools.
			},
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler upgrades requests on any path to a feed connection.
func (wst *WebSocketTransport) Handler() http.Handler {
	return http.HandlerFunc(wst.handleWebSocket)
}

// Start listens on the configured address and serves in the background.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", wst.addr)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	wst.wg.Add(1)
	go func() {
		defer wst.wg.Done()
		log.Infof("transport: feed listening on ws://%s/", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("transport: server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or the configured one before Start.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("transport: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, queue: make(chan []byte, 1), done: make(chan struct{})}
	wst.clientsMu.Lock()
	if wst.closed {
		wst.clientsMu.Unlock()
		conn.Close()
		return
	}
	wst.clients[c] = struct{}{}
	total := len(wst.clients)
	wst.wg.Add(2)
	wst.clientsMu.Unlock()
	log.Infof("transport: client %s connected, total: %d", conn.RemoteAddr(), total)

	go wst.writeLoop(c)
	go wst.readLoop(c)
}

// readLoop discards inbound messages and notices disconnects.
func (wst *WebSocketTransport) readLoop(c *client) {
	defer wst.wg.Done()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			wst.drop(c)
			return
		}
	}
}

func (wst *WebSocketTransport) writeLoop(c *client) {
	defer wst.wg.Done()
	for {
		select {
		case msg := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				log.Debugf("transport: write to %s failed: %v", c.conn.RemoteAddr(), err)
				wst.drop(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// drop unregisters c and closes its connection, once.
func (wst *WebSocketTransport) drop(c *client) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[c]
	delete(wst.clients, c)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if !ok {
		return
	}
	close(c.done)
	c.conn.Close()
	log.Infof("transport: client disconnected, total: %d", total)
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Send queues b for every client without blocking. A client that still has
// an unsent frame keeps that one and misses b.
func (wst *WebSocketTransport) Send(b block.Block) error {
	msg := wire.Encode(make([]byte, 0, len(b)*4), b)

	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	if wst.closed {
		return ErrClosed
	}
	for c := range wst.clients {
		select {
		case c.queue <- msg:
		default:
		}
	}
	return nil
}

// Close disconnects all clients, stops the server and waits for its
// goroutines.
func (wst *WebSocketTransport) Close() error {
	wst.clientsMu.Lock()
	if wst.closed {
		wst.clientsMu.Unlock()
		return nil
	}
	wst.closed = true
	clients := make([]*client, 0, len(wst.clients))
	for c := range wst.clients {
		clients = append(clients, c)
	}
	wst.clientsMu.Unlock()

	for _, c := range clients {
		wst.drop(c)
	}

	var err error
	if wst.server != nil {
		err = wst.server.Close()
	}
	wst.wg.Wait()
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
