package feed

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/praetor-labs/kalshi-go/auth"
	"github.com/praetor-labs/kalshi-go/book"
)

// captureServer upgrades connections, records every inbound command, and
// lets the test push frames to the client.
type captureServer struct {
	*httptest.Server
	commands chan command
	frames   chan []byte
	headers  chan http.Header
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{
		commands: make(chan command, 16),
		frames:   make(chan []byte, 16),
		headers:  make(chan http.Header, 4),
	}
	upgrader := websocket.Upgrader{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case cs.headers <- r.Header.Clone():
		default:
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		go func() {
			for frame := range cs.frames {
				if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var cmd command
			if err := json.Unmarshal(msg, &cmd); err == nil {
				cs.commands <- cmd
			}
		}
	}))
	return cs
}

func (cs *captureServer) push(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	cs.frames <- data
}

func (cs *captureServer) nextCommand(t *testing.T) command {
	t.Helper()
	select {
	case cmd := <-cs.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return command{}
	}
}

func testSigner(t *testing.T) *auth.Signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s, err := auth.NewSigner("test-key-id", key)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

// frame builds a wire frame with a typed msg payload.
func frame(typ string, seq int64, msg any) map[string]any {
	return map[string]any{"type": typ, "seq": seq, "msg": msg}
}

func startFeed(t *testing.T, srv *captureServer, cfg Config) *Feed {
	t.Helper()
	cfg.URL = wsURL(srv.Server)
	if cfg.Signer == nil {
		cfg.Signer = testSigner(t)
	}
	f := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := f.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestFeed_HandshakeCarriesAuthHeaders(t *testing.T) {
	srv := newCaptureServer(t)
	defer srv.Close()

	startFeed(t, srv, Config{})

	select {
	case h := <-srv.headers:
		if h.Get("KALSHI-ACCESS-KEY") != "test-key-id" {
			t.Fatalf("missing access key header: %v", h)
		}
		if h.Get("KALSHI-ACCESS-SIGNATURE") == "" {
			t.Fatal("missing signature header")
		}
		if h.Get("KALSHI-ACCESS-TIMESTAMP") == "" {
			t.Fatal("missing timestamp header")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never reached server")
	}
}

func TestFeed_SubscribeWireFormat(t *testing.T) {
	srv := newCaptureServer(t)
	defer srv.Close()

	f := startFeed(t, srv, Config{})
	f.Subscribe("INXD-23DEC29-B4000")

	cmd := srv.nextCommand(t)
	if cmd.Cmd != "subscribe" {
		t.Fatalf("expected subscribe, got %q", cmd.Cmd)
	}
	if cmd.ID != 1 {
		t.Fatalf("expected command id 1, got %d", cmd.ID)
	}
	if len(cmd.Params.Channels) != 1 || cmd.Params.Channels[0] != ChannelOrderbook {
		t.Fatalf("expected default orderbook channel, got %v", cmd.Params.Channels)
	}
	if cmd.Params.MarketTicker != "INXD-23DEC29-B4000" {
		t.Fatalf("wrong ticker: %q", cmd.Params.MarketTicker)
	}
}

func TestFeed_SnapshotAndDeltaBuildBook(t *testing.T) {
	srv := newCaptureServer(t)
	defer srv.Close()

	f := startFeed(t, srv, Config{})
	f.Subscribe("TICK")
	srv.nextCommand(t)

	srv.push(t, frame(typeSnapshot, 1, snapshotMsg{
		MarketTicker: "TICK",
		Yes:          [][2]int{{50, 10}},
		No:           [][2]int{{40, 5}},
	}))
	srv.push(t, frame(typeDelta, 2, deltaMsg{
		MarketTicker: "TICK",
		Side:         "yes",
		Price:        50,
		Quantity:     15,
	}))

	deadline := time.After(2 * time.Second)
	for {
		b, ok := f.Books().Get("TICK")
		if ok && b.Seq() == 2 {
			top, ok := b.BestYesBid()
			if !ok || top.Price != 50 || top.Quantity != 15 {
				t.Fatalf("unexpected best yes bid: %+v ok=%v", top, ok)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("book never reached seq 2")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFeed_GapTriggersResubscribe(t *testing.T) {
	srv := newCaptureServer(t)
	defer srv.Close()

	f := startFeed(t, srv, Config{})
	f.Subscribe("TICK", ChannelOrderbook, ChannelTicker)
	first := srv.nextCommand(t)

	srv.push(t, frame(typeSnapshot, 5, snapshotMsg{
		MarketTicker: "TICK",
		Yes:          [][2]int{{30, 1}},
	}))
	// Skip seq 6: the feed must drop the book and resubscribe.
	srv.push(t, frame(typeDelta, 7, deltaMsg{
		MarketTicker: "TICK",
		Side:         "yes",
		Price:        30,
		Quantity:     2,
	}))

	second := srv.nextCommand(t)
	if second.Cmd != "subscribe" {
		t.Fatalf("expected resubscribe, got %q", second.Cmd)
	}
	if second.ID == first.ID {
		t.Fatal("resubscribe must use a fresh command id")
	}
	if second.Params.MarketTicker != "TICK" {
		t.Fatalf("resubscribed wrong ticker: %q", second.Params.MarketTicker)
	}
	if len(second.Params.Channels) != 2 {
		t.Fatalf("resubscribe must repeat original channels, got %v", second.Params.Channels)
	}

	b, ok := f.Books().Get("TICK")
	if !ok {
		t.Fatal("book missing after gap")
	}
	if b.State() != book.Stale {
		t.Fatalf("expected stale book after gap, got %v", b.State())
	}
}

func TestFeed_UnsubscribeRemovesBook(t *testing.T) {
	srv := newCaptureServer(t)
	defer srv.Close()

	f := startFeed(t, srv, Config{})
	f.Subscribe("TICK")
	srv.nextCommand(t)

	// Acknowledge the subscription so the feed learns its sid.
	srv.push(t, map[string]any{
		"type": typeSubscribed,
		"id":   1,
		"msg":  subscribedMsg{Channel: ChannelOrderbook, SID: 42},
	})
	srv.push(t, frame(typeSnapshot, 1, snapshotMsg{MarketTicker: "TICK"}))

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := f.Books().Get("TICK"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("snapshot never applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	f.Unsubscribe("TICK")

	cmd := srv.nextCommand(t)
	if cmd.Cmd != "unsubscribe" {
		t.Fatalf("expected unsubscribe, got %q", cmd.Cmd)
	}
	if len(cmd.Params.Sids) != 1 || cmd.Params.Sids[0] != 42 {
		t.Fatalf("expected sid 42, got %v", cmd.Params.Sids)
	}
	if _, ok := f.Books().Get("TICK"); ok {
		t.Fatal("book must be removed on unsubscribe")
	}
}

func TestFeed_DispatchesTypedHandlers(t *testing.T) {
	srv := newCaptureServer(t)
	defer srv.Close()

	tickers := make(chan Ticker, 1)
	fills := make(chan Fill, 1)
	startFeed(t, srv, Config{
		Handlers: Handlers{
			OnTicker: func(tk Ticker) { tickers <- tk },
			OnFill:   func(fl Fill) { fills <- fl },
		},
	})

	srv.push(t, frame(typeTicker, 0, Ticker{MarketTicker: "TICK", YesBid: 48, YesAsk: 52}))
	srv.push(t, frame(typeFill, 0, Fill{OrderID: "ord-1", MarketTicker: "TICK", Count: 3}))

	select {
	case tk := <-tickers:
		if tk.YesBid != 48 || tk.YesAsk != 52 {
			t.Fatalf("unexpected ticker: %+v", tk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticker handler never ran")
	}

	select {
	case fl := <-fills:
		if fl.OrderID != "ord-1" || fl.Count != 3 {
			t.Fatalf("unexpected fill: %+v", fl)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fill handler never ran")
	}
}
