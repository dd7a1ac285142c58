// Package testtimex provides a manually advanced timex.Clock.
package testtimex

import (
	"sync"
	"time"

	"github.com/trask/brave-agent/internal/timex"
)

// Clock only moves when Advance is called.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ticker
}

var _ timex.Clock = (*Clock)(nil)

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the clock forward and fires every ticker that became due.
// Non-positive durations are ignored.
func (c *Clock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*ticker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

// NewTicker panics on a non-positive interval, as time.NewTicker does.
func (c *Clock) NewTicker(d time.Duration) timex.Ticker {
	if d <= 0 {
		panic("non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &ticker{
		c:    make(chan time.Time, 1),
		d:    d,
		next: c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

type ticker struct {
	mu      sync.Mutex
	c       chan time.Time
	d       time.Duration
	next    time.Time
	stopped bool
}

func (t *ticker) C() <-chan time.Time {
	return t.c
}

// Stop does not close the channel, matching time.Ticker.
func (t *ticker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *ticker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.next) {
		return
	}
	for !now.Before(t.next) {
		t.next = t.next.Add(t.d)
	}
	select {
	case t.c <- now:
	default:
	}
}
