package feed

import (
	"sync"
	"time"
)

// WatchdogConfig holds tunable parameters for a Watchdog.
type WatchdogConfig struct {
	// StaleThreshold is the maximum age of the last book message before a
	// ticker is considered stale. Default: 5s.
	StaleThreshold time.Duration

	// CoolOff is the continuous healthy-data period required after a
	// ticker recovers before Fresh reports true again. Default: 2s.
	CoolOff time.Duration
}

// DefaultWatchdogConfig returns production-tuned defaults.
func DefaultWatchdogConfig() WatchdogConfig {
	return WatchdogConfig{
		StaleThreshold: 5 * time.Second,
		CoolOff:        2 * time.Second,
	}
}

// tickerState tracks health for one market.
type tickerState struct {
	LastUpdate time.Time
	// RecoveredAt is set on the unhealthy-to-healthy transition. Fresh
	// stays false until CoolOff has elapsed since then.
	RecoveredAt time.Time
	Healthy     bool
}

// Watchdog gates trading decisions on data freshness. A ticker is Fresh
// only while the connection is healthy, book messages keep arriving
// within StaleThreshold, the post-recovery cool-off has elapsed, and no
// manual halt is active. The feed calls Touch on every applied book
// message.
type Watchdog struct {
	cfg WatchdogConfig

	connMu sync.RWMutex
	conn   *Conn

	mu      sync.RWMutex
	tickers map[string]*tickerState

	haltMu sync.RWMutex
	halted bool

	nowFunc func() time.Time // injectable clock for testing
}

// NewWatchdog creates a Watchdog with the given thresholds.
func NewWatchdog(cfg WatchdogConfig) *Watchdog {
	if cfg.StaleThreshold == 0 {
		cfg = DefaultWatchdogConfig()
	}
	return &Watchdog{
		cfg:     cfg,
		tickers: make(map[string]*tickerState),
		nowFunc: time.Now,
	}
}

// watch registers the connection whose circuit state gates freshness.
func (w *Watchdog) watch(c *Conn) {
	w.connMu.Lock()
	w.conn = c
	w.connMu.Unlock()
}

// Halt forces Fresh to report false for every ticker until Resume.
func (w *Watchdog) Halt() {
	w.haltMu.Lock()
	w.halted = true
	w.haltMu.Unlock()
}

// Resume clears a manual halt. Tickers still need fresh data and an
// elapsed cool-off before Fresh returns true.
func (w *Watchdog) Resume() {
	w.haltMu.Lock()
	w.halted = false
	w.haltMu.Unlock()
}

// Touch records a book message for the ticker. An unhealthy ticker
// transitioning back to healthy starts its cool-off.
func (w *Watchdog) Touch(ticker string) {
	now := w.nowFunc()

	w.mu.Lock()
	ts, ok := w.tickers[ticker]
	if !ok {
		ts = &tickerState{}
		w.tickers[ticker] = ts
	}

	wasHealthy := ts.Healthy
	ts.LastUpdate = now
	ts.Healthy = true
	if !wasHealthy {
		ts.RecoveredAt = now
	}
	w.mu.Unlock()
}

// MarkStale forces a ticker unhealthy, restarting its cool-off on the
// next Touch. The feed's gap handling calls this before resubscribing.
func (w *Watchdog) MarkStale(ticker string) {
	w.mu.Lock()
	if ts, ok := w.tickers[ticker]; ok {
		ts.Healthy = false
	}
	w.mu.Unlock()
}

// Fresh reports whether the ticker's data can be trusted right now:
//  1. No manual halt is active.
//  2. The connection circuit is closed.
//  3. The last book message is within StaleThreshold.
//  4. The cool-off has elapsed since the last recovery.
func (w *Watchdog) Fresh(ticker string) bool {
	w.haltMu.RLock()
	if w.halted {
		w.haltMu.RUnlock()
		return false
	}
	w.haltMu.RUnlock()

	w.connMu.RLock()
	conn := w.conn
	w.connMu.RUnlock()
	if conn != nil && conn.Circuit() == CircuitOpen {
		return false
	}

	now := w.nowFunc()

	w.mu.RLock()
	ts, ok := w.tickers[ticker]
	w.mu.RUnlock()

	if !ok || !ts.Healthy {
		return false
	}
	if now.Sub(ts.LastUpdate) > w.cfg.StaleThreshold {
		return false
	}
	if !ts.RecoveredAt.IsZero() && now.Sub(ts.RecoveredAt) < w.cfg.CoolOff {
		return false
	}
	return true
}
