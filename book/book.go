// Package book reconstructs per-market order books from the exchange's
// snapshot/delta stream. A book is only trustworthy while every delta
// arrives with the next expected sequence number; any gap invalidates
// the book until a fresh snapshot resynchronizes it.
package book

import (
	"fmt"
	"sort"
	"sync"
)

// Side names one side of a binary-contract book. Both sides hold bids;
// an ask is a consumer-side derivation (100 minus the opposite bid) and
// is deliberately not computed here.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// State is the lifecycle state of a book.
type State int

const (
	// Uninitialized: no snapshot received yet.
	Uninitialized State = iota
	// Live: snapshot applied, deltas in sequence.
	Live
	// Stale: a sequence gap was detected; levels are discarded and
	// deltas are rejected until the next snapshot.
	Stale
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Stale:
		return "stale"
	default:
		return "uninitialized"
	}
}

// Level is one price level: price in cents (1-99), quantity in
// contracts. Zero-quantity levels are never stored.
type Level struct {
	Price    int
	Quantity int
}

// Snapshot replaces a book wholesale. Levels are [price, quantity] pairs.
type Snapshot struct {
	Ticker string
	Yes    [][2]int
	No     [][2]int
	Seq    int64
}

// Delta sets the absolute quantity at one price on one side. Seq must be
// exactly one past the book's current sequence number.
type Delta struct {
	Ticker   string
	Side     Side
	Price    int
	Quantity int
	Seq      int64
}

// GapError reports a sequence discontinuity. The book has discarded its
// levels and needs a fresh snapshot.
type GapError struct {
	Ticker   string
	Expected int64
	Got      int64
}

func (e *GapError) Error() string {
	return fmt.Sprintf("book: %s: sequence gap: expected %d, got %d", e.Ticker, e.Expected, e.Got)
}

// ErrStale is returned for deltas applied while the book awaits a
// snapshot (either never initialized or invalidated by a gap).
type ErrStale struct {
	Ticker string
	State  State
}

func (e *ErrStale) Error() string {
	return fmt.Sprintf("book: %s: cannot apply delta in %s state", e.Ticker, e.State)
}

// Book is the two-sided price-level book for one market. Reads and
// writes are internally synchronized, so a feed goroutine can apply
// messages while consumers query best bids. Deltas for one ticker must
// still arrive from a single ordered source.
type Book struct {
	mu     sync.RWMutex
	ticker string
	yes    map[int]int // price -> quantity
	no     map[int]int
	seq    int64
	state  State
}

// New returns an empty, uninitialized book for a ticker.
func New(ticker string) *Book {
	return &Book{
		ticker: ticker,
		yes:    make(map[int]int),
		no:     make(map[int]int),
	}
}

// Ticker returns the market this book tracks.
func (b *Book) Ticker() string { return b.ticker }

// Seq returns the sequence number of the last applied message.
func (b *Book) Seq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// State returns the book's lifecycle state.
func (b *Book) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// ApplySnapshot replaces both sides wholesale and adopts the snapshot's
// sequence number. Valid in any state: this is the resync mechanism.
func (b *Book) ApplySnapshot(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.yes = make(map[int]int, len(snap.Yes))
	b.no = make(map[int]int, len(snap.No))
	for _, lvl := range snap.Yes {
		if lvl[1] > 0 {
			b.yes[lvl[0]] = lvl[1]
		}
	}
	for _, lvl := range snap.No {
		if lvl[1] > 0 {
			b.no[lvl[0]] = lvl[1]
		}
	}
	b.seq = snap.Seq
	b.state = Live
}

// ApplyDelta applies a single level change. The delta's sequence number
// must be exactly seq+1; otherwise the book discards its levels, goes
// Stale, and returns a *GapError so the caller can resynchronize.
func (b *Book) ApplyDelta(d Delta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Live {
		return &ErrStale{Ticker: b.ticker, State: b.state}
	}
	if d.Seq != b.seq+1 {
		b.invalidate()
		return &GapError{Ticker: b.ticker, Expected: b.seq + 1, Got: d.Seq}
	}

	side := b.yes
	if d.Side == SideNo {
		side = b.no
	}
	if d.Quantity <= 0 {
		delete(side, d.Price)
	} else {
		side[d.Price] = d.Quantity
	}
	b.seq = d.Seq
	return nil
}

// invalidate drops all levels and marks the book Stale. The sequence
// number is kept for diagnostics; only a snapshot resets it. Caller
// holds the write lock.
func (b *Book) invalidate() {
	b.yes = make(map[int]int)
	b.no = make(map[int]int)
	b.state = Stale
}

// BestYesBid returns the highest-priced yes level, or ok=false when the
// side is empty.
func (b *Book) BestYesBid() (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return best(b.yes)
}

// BestNoBid returns the highest-priced no level, or ok=false when the
// side is empty.
func (b *Book) BestNoBid() (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return best(b.no)
}

func best(side map[int]int) (Level, bool) {
	found := false
	var top Level
	for price, qty := range side {
		if !found || price > top.Price {
			top = Level{Price: price, Quantity: qty}
			found = true
		}
	}
	return top, found
}

// Levels returns a price-ascending copy of one side.
func (b *Book) Levels(side Side) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m := b.yes
	if side == SideNo {
		m = b.no
	}
	out := make([]Level, 0, len(m))
	for price, qty := range m {
		out = append(out, Level{Price: price, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
