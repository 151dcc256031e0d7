package feed

import (
	"context"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// CircuitState exposes connection health. Consumers can gate actions that
// need live data (order placement, quoting) on CircuitClosed.
type CircuitState int32

const (
	CircuitClosed CircuitState = iota // healthy
	CircuitOpen                       // disconnected, reconnecting
)

// ConnConfig holds tunable parameters for a Conn.
type ConnConfig struct {
	URL string

	// Buffer sizes for the underlying TCP connection.
	ReadBufferSize  int
	WriteBufferSize int

	// HeartbeatTimeout is the maximum silence before the connection is
	// considered dead and a reconnect is triggered. The exchange pings
	// every ten seconds, so anything beyond that means trouble.
	HeartbeatTimeout time.Duration

	// Backoff parameters for reconnection.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffFactor  float64

	// Headers sent during the WebSocket handshake. The exchange
	// authenticates the upgrade request itself, so these must carry the
	// signed access headers.
	Headers http.Header

	// HeaderFunc, when set, is called before every dial (including
	// reconnects) to produce fresh handshake headers. Signatures embed a
	// timestamp, so reusing the originals after a long outage fails auth.
	HeaderFunc func() (http.Header, error)
}

// DefaultConnConfig returns defaults tuned for exchange market data.
func DefaultConnConfig(url string) ConnConfig {
	return ConnConfig{
		URL:              url,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HeartbeatTimeout: 30 * time.Second,
		BackoffInitial:   100 * time.Millisecond,
		BackoffMax:       10 * time.Second,
		BackoffFactor:    2.0,
	}
}

// Conn is a resilient WebSocket connection. It reconnects with exponential
// backoff, monitors heartbeats via read deadlines, and fans inbound
// messages out to subscribers.
type Conn struct {
	cfg ConnConfig

	circuit atomic.Int32

	mu   sync.RWMutex
	conn *websocket.Conn

	subMu sync.RWMutex
	subs  []chan []byte

	outbox chan []byte

	cancel context.CancelFunc
	done   chan struct{}

	// onReconnect runs after each successful reconnection, before reads
	// resume. The feed uses it to resubscribe.
	onReconnect func()
}

// NewConn creates a connection manager. Call Connect to start.
func NewConn(cfg ConnConfig) *Conn {
	return &Conn{
		cfg:    cfg,
		outbox: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Circuit returns the current connection health.
func (c *Conn) Circuit() CircuitState {
	return CircuitState(c.circuit.Load())
}

// OnReconnect installs a hook that runs after every successful reconnect.
// Must be called before Connect.
func (c *Conn) OnReconnect(fn func()) {
	c.onReconnect = fn
}

// Subscribe returns a channel receiving copies of every inbound message.
// Slow consumers are skipped, not waited on.
func (c *Conn) Subscribe() <-chan []byte {
	ch := make(chan []byte, 512)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

// Send enqueues a message for delivery.
func (c *Conn) Send(data []byte) {
	select {
	case c.outbox <- data:
	default:
		log.Printf("ws: outbox full, dropping message (%d bytes)", len(data))
	}
}

// Connect dials the endpoint and starts the read and write loops. It
// blocks until the initial connection succeeds or ctx is cancelled.
func (c *Conn) Connect(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	if err := c.dial(ctx); err != nil {
		return err
	}
	c.circuit.Store(int32(CircuitClosed))

	go c.readLoop(ctx)
	go c.writeLoop(ctx)

	return nil
}

// Close shuts down the connection and closes all subscriber channels.
func (c *Conn) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	c.subMu.RLock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subMu.RUnlock()

	close(c.done)
}

// Done returns a channel closed once the connection has fully shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// dial establishes the WebSocket connection with TCP_NODELAY enabled.
func (c *Conn) dial(ctx context.Context) error {
	headers := c.cfg.Headers
	if c.cfg.HeaderFunc != nil {
		h, err := c.cfg.HeaderFunc()
		if err != nil {
			return err
		}
		headers = h
	}

	dialer := websocket.Dialer{
		ReadBufferSize:  c.cfg.ReadBufferSize,
		WriteBufferSize: c.cfg.WriteBufferSize,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.SetNoDelay(true)
			}
			return conn, nil
		},
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, headers)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// reconnect loops with exponential backoff until a connection is
// re-established or the context is cancelled.
func (c *Conn) reconnect(ctx context.Context) bool {
	c.circuit.Store(int32(CircuitOpen))

	delay := c.cfg.BackoffInitial
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := c.dial(ctx); err != nil {
			log.Printf("ws: reconnect failed: %v (retry in %v)", err, delay)
			delay = time.Duration(math.Min(
				float64(delay)*c.cfg.BackoffFactor,
				float64(c.cfg.BackoffMax),
			))
			continue
		}

		c.circuit.Store(int32(CircuitClosed))
		if c.onReconnect != nil {
			c.onReconnect()
		}
		return true
	}
}

// readLoop reads messages and fans them out. It doubles as the heartbeat
// monitor: silence past HeartbeatTimeout forces a reconnect.
func (c *Conn) readLoop(ctx context.Context) {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		conn.SetReadDeadline(time.Now().Add(c.cfg.HeartbeatTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ws: read error (triggering reconnect): %v", err)
			conn.Close()
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		c.fanOut(msg)
	}
}

// writeLoop drains the outbox onto the connection.
func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.outbox:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws: write error: %v", err)
			}
		}
	}
}

// fanOut delivers msg to every subscriber without blocking.
func (c *Conn) fanOut(msg []byte) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, ch := range c.subs {
		select {
		case ch <- msg:
		default:
			// Slow consumer, drop to avoid head-of-line blocking.
		}
	}
}
