package feed

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWatchdog() (*Watchdog, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	w := NewWatchdog(WatchdogConfig{
		StaleThreshold: time.Second,
		CoolOff:        2 * time.Second,
	})
	w.nowFunc = clock.now
	return w, clock
}

func TestWatchdog_UnknownTickerNotFresh(t *testing.T) {
	w, _ := newTestWatchdog()
	if w.Fresh("TICK") {
		t.Fatal("ticker with no data must not be fresh")
	}
}

func TestWatchdog_FreshAfterCoolOff(t *testing.T) {
	w, clock := newTestWatchdog()

	w.Touch("TICK")
	if w.Fresh("TICK") {
		t.Fatal("fresh before cool-off elapsed")
	}

	// Keep data flowing while the cool-off runs out.
	clock.advance(2 * time.Second)
	w.Touch("TICK")
	if !w.Fresh("TICK") {
		t.Fatal("expected fresh after cool-off with live data")
	}
}

func TestWatchdog_StaleAfterSilence(t *testing.T) {
	w, clock := newTestWatchdog()

	w.Touch("TICK")
	clock.advance(2 * time.Second)
	w.Touch("TICK")
	if !w.Fresh("TICK") {
		t.Fatal("setup: expected fresh")
	}

	clock.advance(1500 * time.Millisecond)
	if w.Fresh("TICK") {
		t.Fatal("silence past threshold must not be fresh")
	}
}

func TestWatchdog_MarkStaleRestartsCoolOff(t *testing.T) {
	w, clock := newTestWatchdog()

	w.Touch("TICK")
	clock.advance(2 * time.Second)
	w.Touch("TICK")
	if !w.Fresh("TICK") {
		t.Fatal("setup: expected fresh")
	}

	w.MarkStale("TICK")
	if w.Fresh("TICK") {
		t.Fatal("marked-stale ticker must not be fresh")
	}

	// Recovery restarts the cool-off.
	w.Touch("TICK")
	if w.Fresh("TICK") {
		t.Fatal("fresh immediately after recovery")
	}
	clock.advance(2 * time.Second)
	w.Touch("TICK")
	if !w.Fresh("TICK") {
		t.Fatal("expected fresh once cool-off elapsed again")
	}
}

func TestWatchdog_HaltBlocksEverything(t *testing.T) {
	w, clock := newTestWatchdog()

	w.Touch("TICK")
	clock.advance(2 * time.Second)
	w.Touch("TICK")

	w.Halt()
	if w.Fresh("TICK") {
		t.Fatal("halted watchdog must not report fresh")
	}
	w.Resume()
	if !w.Fresh("TICK") {
		t.Fatal("expected fresh after resume")
	}
}
