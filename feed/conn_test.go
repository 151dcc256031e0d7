package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newEchoServer returns an httptest.Server that upgrades to WebSocket and
// echoes every message back to the client.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if err := c.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestConn_Connect(t *testing.T) {
	srv := newEchoServer(t)
	defer srv.Close()

	client := NewConn(DefaultConnConfig(wsURL(srv)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if client.Circuit() != CircuitClosed {
		t.Fatalf("expected CircuitClosed after connect, got %d", client.Circuit())
	}

	sub := client.Subscribe()
	client.Send([]byte("hello"))

	select {
	case msg := <-sub:
		if string(msg) != "hello" {
			t.Fatalf("expected 'hello', got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for echoed message")
	}
}

func TestConn_Reconnect(t *testing.T) {
	srv := newEchoServer(t)

	cfg := DefaultConnConfig(wsURL(srv))
	cfg.HeartbeatTimeout = 200 * time.Millisecond
	cfg.BackoffInitial = 50 * time.Millisecond

	var reconnects atomic.Int32
	client := NewConn(cfg)
	client.OnReconnect(func() { reconnects.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	// Kill the server to break the connection.
	srv.Close()

	// Wait for the client to detect the drop and open the circuit.
	time.Sleep(400 * time.Millisecond)
	if client.Circuit() != CircuitOpen {
		t.Fatal("expected CircuitOpen after server close")
	}

	// Point the client at a fresh server so reconnect can succeed.
	srv2 := newEchoServer(t)
	defer srv2.Close()

	client.mu.Lock()
	client.cfg.URL = wsURL(srv2)
	client.mu.Unlock()

	deadline := time.After(3 * time.Second)
	for reconnects.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reconnect")
		case <-time.After(50 * time.Millisecond):
		}
	}

	if client.Circuit() != CircuitClosed {
		t.Fatal("expected CircuitClosed after reconnect")
	}
}

func TestConn_HeartbeatTimeout(t *testing.T) {
	// A server that accepts the connection but never sends anything.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		select {}
	}))
	defer srv.Close()

	cfg := DefaultConnConfig(wsURL(srv))
	cfg.HeartbeatTimeout = 200 * time.Millisecond
	cfg.BackoffInitial = 50 * time.Millisecond

	client := NewConn(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	// Silence past the heartbeat timeout must open the circuit.
	deadline := time.After(2 * time.Second)
	for client.Circuit() != CircuitOpen {
		select {
		case <-deadline:
			t.Fatal("heartbeat timeout did not open circuit")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestConn_HeaderFuncRunsPerDial(t *testing.T) {
	var dials atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("KALSHI-ACCESS-KEY") != "key-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := DefaultConnConfig(wsURL(srv))
	cfg.HeaderFunc = func() (http.Header, error) {
		dials.Add(1)
		h := http.Header{}
		h.Set("KALSHI-ACCESS-KEY", "key-1")
		return h, nil
	}

	client := NewConn(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if dials.Load() != 1 {
		t.Fatalf("expected HeaderFunc to run once, ran %d times", dials.Load())
	}
}
