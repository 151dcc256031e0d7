package book

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// HashWriter abstracts the HSET-shaped sink the Mirror publishes into.
// In production this is satisfied by a Redis client; in tests by a mock.
type HashWriter interface {
	HSet(ctx context.Context, key string, values ...any) error
}

// bestQuote holds the last-published best bids for a ticker so unchanged
// values are not re-written.
type bestQuote struct {
	YesBid string
	NoBid  string
}

// Mirror publishes the best yes/no bid of tracked books into an external
// hash store using the schema:
//
//	Key:    book:kalshi:{ticker}
//	Fields: yes_bid, no_bid, seq, ts
//
// Call Publish after each applied message; duplicate quotes are
// suppressed.
type Mirror struct {
	sink HashWriter

	mu   sync.Mutex
	last map[string]bestQuote

	now func() time.Time
}

// NewMirror creates a Mirror writing to the given sink.
func NewMirror(sink HashWriter) *Mirror {
	return &Mirror{
		sink: sink,
		last: make(map[string]bestQuote),
		now:  time.Now,
	}
}

// Publish writes the book's current best bids if they changed since the
// last publish for that ticker.
func (m *Mirror) Publish(ctx context.Context, b *Book) error {
	yes := "0"
	if lvl, ok := b.BestYesBid(); ok {
		yes = strconv.Itoa(lvl.Price)
	}
	no := "0"
	if lvl, ok := b.BestNoBid(); ok {
		no = strconv.Itoa(lvl.Price)
	}

	key := "book:kalshi:" + b.Ticker()

	m.mu.Lock()
	prev, exists := m.last[key]
	if exists && prev.YesBid == yes && prev.NoBid == no {
		m.mu.Unlock()
		return nil
	}
	m.last[key] = bestQuote{YesBid: yes, NoBid: no}
	m.mu.Unlock()

	ts := strconv.FormatInt(m.now().UnixMilli(), 10)
	return m.sink.HSet(ctx, key, "yes_bid", yes, "no_bid", no,
		"seq", strconv.FormatInt(b.Seq(), 10), "ts", ts)
}
