package book

import (
	"log"
	"sync"
)

// GapFunc is notified when a ticker's book detects a sequence gap. The
// book is already Stale; the callback decides how to resynchronize
// (typically by resubscribing the ticker).
type GapFunc func(gap *GapError)

// Manager routes snapshot and delta messages to per-ticker books. All
// mutation goes through one mutex, so a single Manager may be fed from
// one goroutine and queried from others. Cross-ticker ordering carries
// no meaning; within a ticker, messages must be applied in arrival order.
type Manager struct {
	mu    sync.RWMutex
	books map[string]*Book
	onGap GapFunc
}

// NewManager creates an empty book manager.
func NewManager() *Manager {
	return &Manager{books: make(map[string]*Book)}
}

// OnGap installs the gap notification callback. Pass nil to just log.
func (m *Manager) OnGap(fn GapFunc) {
	m.mu.Lock()
	m.onGap = fn
	m.mu.Unlock()
}

// ApplySnapshot creates or replaces the book for the snapshot's ticker.
func (m *Manager) ApplySnapshot(snap Snapshot) {
	m.mu.Lock()
	b, ok := m.books[snap.Ticker]
	if !ok {
		b = New(snap.Ticker)
		m.books[snap.Ticker] = b
	}
	b.ApplySnapshot(snap)
	m.mu.Unlock()
}

// ApplyDelta applies a delta to the ticker's book. Deltas for unknown
// tickers are dropped (the snapshot has not arrived yet, or the market
// was unsubscribed). Gaps invalidate the book and fire the OnGap
// callback; the error is also returned.
func (m *Manager) ApplyDelta(d Delta) error {
	m.mu.Lock()
	b, ok := m.books[d.Ticker]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	err := b.ApplyDelta(d)
	onGap := m.onGap
	m.mu.Unlock()

	if err != nil {
		if gap, ok := err.(*GapError); ok {
			log.Printf("book: %s: gap detected (expected seq %d, got %d)", gap.Ticker, gap.Expected, gap.Got)
			if onGap != nil {
				onGap(gap)
			}
		}
		return err
	}
	return nil
}

// Get returns the book for a ticker, or ok=false if none exists.
func (m *Manager) Get(ticker string) (*Book, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[ticker]
	return b, ok
}

// Remove discards a ticker's book (unsubscribe or connection loss).
func (m *Manager) Remove(ticker string) {
	m.mu.Lock()
	delete(m.books, ticker)
	m.mu.Unlock()
}

// Reset discards every book. Called on connection loss, when all
// sequence continuity is gone.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.books = make(map[string]*Book)
	m.mu.Unlock()
}

// Tickers returns the tickers with a tracked book.
func (m *Manager) Tickers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.books))
	for t := range m.books {
		out = append(out, t)
	}
	return out
}
