// Package ratelimit coordinates outgoing request rate against the
// exchange-advertised quota. The client consults Acquire before every
// request and feeds response headers to Update afterwards.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the capability the request pipeline depends on. A single
// instance may be shared by many concurrent goroutines.
type Limiter interface {
	// Acquire blocks until a request may proceed (or ctx is done) and
	// returns how long the caller was held.
	Acquire(ctx context.Context) (time.Duration, error)
	// Update ingests exchange-reported quota headers to recalibrate.
	Update(headers http.Header)
}

// NoOp always admits immediately and ignores quota headers. Use it when
// request rate is managed externally or in tests.
type NoOp struct{}

func (NoOp) Acquire(ctx context.Context) (time.Duration, error) { return 0, ctx.Err() }
func (NoOp) Update(http.Header)                                 {}

// TokenBucket admits requests at a steady rate with a small burst
// allowance, and additionally honors server-reported exhaustion: when a
// response says zero requests remain in the window, Acquire holds every
// caller until the reported reset instant.
type TokenBucket struct {
	lim *rate.Limiter

	mu        sync.Mutex
	blockedTo time.Time

	now func() time.Time
}

// NewTokenBucket creates a limiter admitting requestsPerSecond with the
// given burst (minimum 1).
func NewTokenBucket(requestsPerSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		lim: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		now: time.Now,
	}
}

// Acquire waits for both the local token bucket and any server-imposed
// hold. The returned duration is the total time the caller was delayed.
func (t *TokenBucket) Acquire(ctx context.Context) (time.Duration, error) {
	start := t.now()

	t.mu.Lock()
	until := t.blockedTo
	t.mu.Unlock()

	if wait := until.Sub(t.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return t.now().Sub(start), ctx.Err()
		case <-timer.C:
		}
	}

	if err := t.lim.Wait(ctx); err != nil {
		return t.now().Sub(start), err
	}
	return t.now().Sub(start), nil
}

// Update recalibrates from quota headers. Recognised headers:
// RateLimit-Remaining / X-RateLimit-Remaining for the window budget and
// Retry-After (delta seconds) for the hold duration when exhausted.
func (t *TokenBucket) Update(headers http.Header) {
	if headers == nil {
		return
	}

	remaining, ok := headerInt(headers, "RateLimit-Remaining", "X-RateLimit-Remaining")
	if !ok || remaining > 0 {
		return
	}

	hold := time.Second
	if after, ok := headerInt(headers, "Retry-After"); ok && after > 0 {
		hold = time.Duration(after) * time.Second
	}

	t.mu.Lock()
	if until := t.now().Add(hold); until.After(t.blockedTo) {
		t.blockedTo = until
	}
	t.mu.Unlock()
}

func headerInt(h http.Header, names ...string) (int, bool) {
	for _, name := range names {
		v := h.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
