package book

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveBook(t *testing.T) *Book {
	t.Helper()
	b := New("FED-23DEC-T3.00")
	b.ApplySnapshot(Snapshot{
		Ticker: "FED-23DEC-T3.00",
		Yes:    [][2]int{{50, 10}},
		No:     [][2]int{{40, 5}},
		Seq:    1,
	})
	return b
}

func TestBook_SnapshotThenDelta(t *testing.T) {
	b := liveBook(t)
	assert.Equal(t, Live, b.State())
	assert.EqualValues(t, 1, b.Seq())

	err := b.ApplyDelta(Delta{Side: SideYes, Price: 50, Quantity: 15, Seq: 2})
	require.NoError(t, err)

	top, ok := b.BestYesBid()
	require.True(t, ok)
	assert.Equal(t, Level{Price: 50, Quantity: 15}, top)

	no, ok := b.BestNoBid()
	require.True(t, ok)
	assert.Equal(t, Level{Price: 40, Quantity: 5}, no)
}

func TestBook_ZeroQuantityRemovesLevel(t *testing.T) {
	b := liveBook(t)
	require.NoError(t, b.ApplyDelta(Delta{Side: SideYes, Price: 50, Quantity: 15, Seq: 2}))
	require.NoError(t, b.ApplyDelta(Delta{Side: SideYes, Price: 50, Quantity: 0, Seq: 3}))

	_, ok := b.BestYesBid()
	assert.False(t, ok, "yes side must be empty after removal")
	assert.Empty(t, b.Levels(SideYes))
	assert.EqualValues(t, 3, b.Seq())
}

func TestBook_InsertNewLevel(t *testing.T) {
	b := liveBook(t)
	require.NoError(t, b.ApplyDelta(Delta{Side: SideYes, Price: 52, Quantity: 7, Seq: 2}))

	top, ok := b.BestYesBid()
	require.True(t, ok)
	assert.Equal(t, Level{Price: 52, Quantity: 7}, top)
	assert.Equal(t, []Level{{50, 10}, {52, 7}}, b.Levels(SideYes))
}

func TestBook_GapInvalidates(t *testing.T) {
	b := New("TICK")
	b.ApplySnapshot(Snapshot{Ticker: "TICK", Yes: [][2]int{{30, 1}}, Seq: 5})

	err := b.ApplyDelta(Delta{Side: SideYes, Price: 30, Quantity: 2, Seq: 7})
	var gap *GapError
	require.ErrorAs(t, err, &gap)
	assert.EqualValues(t, 6, gap.Expected)
	assert.EqualValues(t, 7, gap.Got)

	assert.Equal(t, Stale, b.State())
	assert.Empty(t, b.Levels(SideYes), "levels must be discarded on gap")

	// Stale book rejects further deltas, even in-sequence ones.
	err = b.ApplyDelta(Delta{Side: SideYes, Price: 30, Quantity: 2, Seq: 6})
	var stale *ErrStale
	assert.ErrorAs(t, err, &stale)
}

func TestBook_SnapshotResyncsStaleBook(t *testing.T) {
	b := New("TICK")
	b.ApplySnapshot(Snapshot{Ticker: "TICK", Yes: [][2]int{{30, 1}}, Seq: 5})
	_ = b.ApplyDelta(Delta{Side: SideYes, Price: 30, Quantity: 2, Seq: 9})
	require.Equal(t, Stale, b.State())

	b.ApplySnapshot(Snapshot{Ticker: "TICK", Yes: [][2]int{{31, 4}}, No: [][2]int{{60, 2}}, Seq: 12})
	assert.Equal(t, Live, b.State())
	assert.EqualValues(t, 12, b.Seq())

	require.NoError(t, b.ApplyDelta(Delta{Side: SideNo, Price: 61, Quantity: 3, Seq: 13}))
	no, ok := b.BestNoBid()
	require.True(t, ok)
	assert.Equal(t, 61, no.Price)
}

func TestBook_DeltaBeforeSnapshotRejected(t *testing.T) {
	b := New("TICK")
	err := b.ApplyDelta(Delta{Side: SideYes, Price: 10, Quantity: 1, Seq: 1})
	var stale *ErrStale
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, Uninitialized, stale.State)
}

func TestBook_SnapshotDropsZeroQuantityLevels(t *testing.T) {
	b := New("TICK")
	b.ApplySnapshot(Snapshot{Ticker: "TICK", Yes: [][2]int{{10, 0}, {20, 3}}, Seq: 1})
	assert.Equal(t, []Level{{20, 3}}, b.Levels(SideYes))
}

func TestManager_RoutesByTicker(t *testing.T) {
	m := NewManager()
	m.ApplySnapshot(Snapshot{Ticker: "AAA", Yes: [][2]int{{40, 2}}, Seq: 1})
	m.ApplySnapshot(Snapshot{Ticker: "BBB", Yes: [][2]int{{60, 9}}, Seq: 1})

	require.NoError(t, m.ApplyDelta(Delta{Ticker: "AAA", Side: SideYes, Price: 41, Quantity: 1, Seq: 2}))

	a, ok := m.Get("AAA")
	require.True(t, ok)
	top, _ := a.BestYesBid()
	assert.Equal(t, 41, top.Price)

	b, ok := m.Get("BBB")
	require.True(t, ok)
	assert.EqualValues(t, 1, b.Seq(), "other tickers must be untouched")
}

func TestManager_DropsDeltaForUnknownTicker(t *testing.T) {
	m := NewManager()
	err := m.ApplyDelta(Delta{Ticker: "NOPE", Side: SideYes, Price: 10, Quantity: 1, Seq: 1})
	assert.NoError(t, err)
}

func TestManager_GapFiresCallback(t *testing.T) {
	m := NewManager()
	var got *GapError
	m.OnGap(func(gap *GapError) { got = gap })

	m.ApplySnapshot(Snapshot{Ticker: "AAA", Yes: [][2]int{{40, 2}}, Seq: 10})
	err := m.ApplyDelta(Delta{Ticker: "AAA", Side: SideYes, Price: 40, Quantity: 3, Seq: 12})

	var gap *GapError
	require.ErrorAs(t, err, &gap)
	require.NotNil(t, got)
	assert.Equal(t, "AAA", got.Ticker)

	b, _ := m.Get("AAA")
	assert.Equal(t, Stale, b.State())
}

func TestManager_RemoveAndReset(t *testing.T) {
	m := NewManager()
	m.ApplySnapshot(Snapshot{Ticker: "AAA", Seq: 1})
	m.ApplySnapshot(Snapshot{Ticker: "BBB", Seq: 1})

	m.Remove("AAA")
	_, ok := m.Get("AAA")
	assert.False(t, ok)

	m.Reset()
	assert.Empty(t, m.Tickers())
}

// fakeHashWriter records HSet calls for mirror tests.
type fakeHashWriter struct {
	calls [][]any
	keys  []string
}

func (f *fakeHashWriter) HSet(_ context.Context, key string, values ...any) error {
	f.keys = append(f.keys, key)
	f.calls = append(f.calls, values)
	return nil
}

func TestMirror_PublishesAndDedups(t *testing.T) {
	sink := &fakeHashWriter{}
	m := NewMirror(sink)
	b := liveBook(t)

	require.NoError(t, m.Publish(context.Background(), b))
	require.Len(t, sink.calls, 1)
	assert.Equal(t, "book:kalshi:FED-23DEC-T3.00", sink.keys[0])
	assert.Equal(t, "yes_bid", sink.calls[0][0])
	assert.Equal(t, "50", sink.calls[0][1])

	// Unchanged best bids: no second write.
	require.NoError(t, m.Publish(context.Background(), b))
	assert.Len(t, sink.calls, 1)

	// Quantity change at the same price does not move the best bid price
	// but a new best price does get written.
	require.NoError(t, b.ApplyDelta(Delta{Side: SideYes, Price: 55, Quantity: 3, Seq: 2}))
	require.NoError(t, m.Publish(context.Background(), b))
	require.Len(t, sink.calls, 2)
	assert.Equal(t, "55", sink.calls[1][1])
}
