// Package feed maintains the authenticated streaming connection to the
// exchange and keeps per-market order books current. It subscribes to
// channels per ticker, routes snapshots and deltas into a book.Manager,
// and resubscribes automatically after sequence gaps and reconnects.
package feed

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/praetor-labs/kalshi-go/auth"
	"github.com/praetor-labs/kalshi-go/book"
)

// ProductionWSURL is the streaming endpoint for the live exchange.
const ProductionWSURL = "wss://api.elections.kalshi.com" + WSPath

// DemoWSURL is the streaming endpoint for the demo environment.
const DemoWSURL = "wss://demo-api.elections.kalshi.com" + WSPath

// Handlers receive non-book messages decoded off the stream. Nil fields
// are skipped. Handlers run on the feed's read goroutine, so they must
// not block.
type Handlers struct {
	OnTicker    func(Ticker)
	OnTrade     func(Trade)
	OnFill      func(Fill)
	OnLifecycle func(Lifecycle)
}

// Feed is the streaming market-data client. It owns a Conn and a
// book.Manager, and keeps the two consistent: snapshots and deltas flow
// into books, gaps trigger a per-ticker resubscribe, and a reconnect
// resets all books and resubscribes everything.
type Feed struct {
	conn     *Conn
	books    *book.Manager
	handlers Handlers
	watchdog *Watchdog

	mu       sync.Mutex
	cmdID    int
	channels map[string][]string // ticker -> subscribed channels
	pending  map[int]*pendingSub // command id -> in-flight subscribe
	sids     map[string][]int    // ticker -> subscription ids
}

// Config configures a Feed.
type Config struct {
	// URL defaults to ProductionWSURL.
	URL string

	// Signer authenticates the WebSocket upgrade. Required.
	Signer *auth.Signer

	// Conn overrides the connection tuning. Zero value uses defaults.
	Conn ConnConfig

	// Handlers for non-book stream messages.
	Handlers Handlers

	// Watchdog, when set, is touched on every book message so staleness
	// can gate trading decisions.
	Watchdog *Watchdog
}

// New creates a Feed. Connect starts it.
func New(cfg Config) *Feed {
	url := cfg.URL
	if url == "" {
		url = ProductionWSURL
	}

	cc := cfg.Conn
	if cc.HeartbeatTimeout == 0 {
		cc = DefaultConnConfig(url)
	}
	cc.URL = url
	if signer := cfg.Signer; signer != nil {
		cc.HeaderFunc = func() (http.Header, error) {
			return handshakeHeaders(signer)
		}
	}

	f := &Feed{
		conn:     NewConn(cc),
		books:    book.NewManager(),
		handlers: cfg.Handlers,
		watchdog: cfg.Watchdog,
		channels: make(map[string][]string),
		pending:  make(map[int]*pendingSub),
		sids:     make(map[string][]int),
	}
	f.books.OnGap(f.resyncTicker)
	f.conn.OnReconnect(f.resubscribeAll)
	if f.watchdog != nil {
		f.watchdog.watch(f.conn)
	}
	return f
}

// handshakeHeaders signs the upgrade request path. The streaming endpoint
// verifies the same timestamp+method+path scheme as REST.
func handshakeHeaders(s *auth.Signer) (http.Header, error) {
	ts, sig, err := s.Sign("GET", WSPath, time.Now())
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("KALSHI-ACCESS-KEY", s.KeyID())
	h.Set("KALSHI-ACCESS-SIGNATURE", sig)
	h.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return h, nil
}

// Books exposes the managed order books.
func (f *Feed) Books() *book.Manager { return f.books }

// Circuit reports connection health.
func (f *Feed) Circuit() CircuitState { return f.conn.Circuit() }

// Connect dials the stream and starts the dispatch loop. It returns once
// the connection is up; message processing continues until ctx is
// cancelled or Close is called.
func (f *Feed) Connect(ctx context.Context) error {
	raw := f.conn.Subscribe()
	if err := f.conn.Connect(ctx); err != nil {
		return err
	}
	go f.run(ctx, raw)
	return nil
}

// Close tears down the stream and discards all books.
func (f *Feed) Close() {
	f.conn.Close()
	f.books.Reset()
}

// Subscribe requests the given channels for one market ticker. With no
// channels, the order book channel is assumed.
func (f *Feed) Subscribe(ticker string, channels ...string) {
	if len(channels) == 0 {
		channels = []string{ChannelOrderbook}
	}

	f.mu.Lock()
	f.cmdID++
	id := f.cmdID
	f.channels[ticker] = channels
	f.pending[id] = &pendingSub{ticker: ticker, remaining: len(channels)}
	f.mu.Unlock()

	f.send(command{
		ID:  id,
		Cmd: "subscribe",
		Params: commandParams{
			Channels:     channels,
			MarketTicker: ticker,
		},
	})
}

// Unsubscribe drops all subscriptions for a ticker and removes its book.
func (f *Feed) Unsubscribe(ticker string) {
	f.mu.Lock()
	sids := f.sids[ticker]
	delete(f.channels, ticker)
	delete(f.sids, ticker)
	f.cmdID++
	id := f.cmdID
	f.mu.Unlock()

	if len(sids) > 0 {
		f.send(command{
			ID:     id,
			Cmd:    "unsubscribe",
			Params: commandParams{Sids: sids},
		})
	}
	f.books.Remove(ticker)
}

func (f *Feed) send(cmd command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		log.Printf("feed: marshal command: %v", err)
		return
	}
	f.conn.Send(data)
}

// resyncTicker is the default gap policy: drop the stale book and
// resubscribe so the exchange replays a snapshot.
func (f *Feed) resyncTicker(gap *book.GapError) {
	f.mu.Lock()
	channels, ok := f.channels[gap.Ticker]
	f.mu.Unlock()
	if !ok {
		return
	}
	if f.watchdog != nil {
		f.watchdog.MarkStale(gap.Ticker)
	}
	log.Printf("feed: resubscribing %s after sequence gap", gap.Ticker)
	f.Subscribe(gap.Ticker, channels...)
}

// resubscribeAll runs after a reconnect. Sequence continuity is gone, so
// every book is reset and every ticker resubscribed.
func (f *Feed) resubscribeAll() {
	f.books.Reset()

	f.mu.Lock()
	tickers := make(map[string][]string, len(f.channels))
	for t, chs := range f.channels {
		tickers[t] = chs
	}
	f.sids = make(map[string][]int)
	f.mu.Unlock()

	for t, chs := range tickers {
		f.Subscribe(t, chs...)
	}
}

// run decodes frames off the connection and dispatches them until the
// context ends or the connection closes.
func (f *Feed) run(ctx context.Context, raw <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-raw:
			if !ok {
				return
			}
			f.dispatch(msg)
		}
	}
}

func (f *Feed) dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("feed: invalid frame: %v", err)
		return
	}

	switch env.Type {
	case typeSnapshot:
		f.handleSnapshot(env)
	case typeDelta:
		f.handleDelta(env)
	case typeTicker:
		if f.handlers.OnTicker != nil {
			var t Ticker
			if err := json.Unmarshal(env.Msg, &t); err != nil {
				log.Printf("feed: bad ticker frame: %v", err)
				return
			}
			f.handlers.OnTicker(t)
		}
	case typeTrade:
		if f.handlers.OnTrade != nil {
			var t Trade
			if err := json.Unmarshal(env.Msg, &t); err != nil {
				log.Printf("feed: bad trade frame: %v", err)
				return
			}
			f.handlers.OnTrade(t)
		}
	case typeFill:
		if f.handlers.OnFill != nil {
			var fl Fill
			if err := json.Unmarshal(env.Msg, &fl); err != nil {
				log.Printf("feed: bad fill frame: %v", err)
				return
			}
			f.handlers.OnFill(fl)
		}
	case typeLifecycle:
		if f.handlers.OnLifecycle != nil {
			var lc Lifecycle
			if err := json.Unmarshal(env.Msg, &lc); err != nil {
				log.Printf("feed: bad lifecycle frame: %v", err)
				return
			}
			f.handlers.OnLifecycle(lc)
		}
	case typeSubscribed:
		f.handleSubscribed(env)
	case typeUnsubscribed:
		// Acknowledgement only; state was already dropped.
	case typeError:
		var e errorMsg
		_ = json.Unmarshal(env.Msg, &e)
		log.Printf("feed: exchange error (code %d): %s", e.Code, e.Msg)
	default:
		// Unknown frame types are ignored for forward compatibility.
	}
}

func (f *Feed) handleSnapshot(env envelope) {
	var msg snapshotMsg
	if err := json.Unmarshal(env.Msg, &msg); err != nil {
		log.Printf("feed: bad snapshot frame: %v", err)
		return
	}
	f.books.ApplySnapshot(book.Snapshot{
		Ticker: msg.MarketTicker,
		Yes:    msg.Yes,
		No:     msg.No,
		Seq:    env.Seq,
	})
	f.touch(msg.MarketTicker)
}

func (f *Feed) handleDelta(env envelope) {
	var msg deltaMsg
	if err := json.Unmarshal(env.Msg, &msg); err != nil {
		log.Printf("feed: bad delta frame: %v", err)
		return
	}
	err := f.books.ApplyDelta(book.Delta{
		Ticker:   msg.MarketTicker,
		Side:     book.Side(msg.Side),
		Price:    msg.Price,
		Quantity: msg.Quantity,
		Seq:      env.Seq,
	})
	if err == nil {
		f.touch(msg.MarketTicker)
	}
	// Gaps are handled by the manager's OnGap callback.
}

func (f *Feed) handleSubscribed(env envelope) {
	var msg subscribedMsg
	if err := json.Unmarshal(env.Msg, &msg); err != nil {
		return
	}
	f.mu.Lock()
	if p, ok := f.pending[env.ID]; ok {
		f.sids[p.ticker] = append(f.sids[p.ticker], msg.SID)
		p.remaining--
		if p.remaining <= 0 {
			delete(f.pending, env.ID)
		}
	}
	f.mu.Unlock()
}

// pendingSub tracks an in-flight subscribe command: one acknowledgement
// arrives per requested channel.
type pendingSub struct {
	ticker    string
	remaining int
}

func (f *Feed) touch(ticker string) {
	if f.watchdog != nil {
		f.watchdog.Touch(ticker)
	}
}
