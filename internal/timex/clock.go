// Package timex abstracts the wall clock so that span timestamps and report
// intervals can be driven by a fake clock in tests.
package timex

import "time"

type Clock interface {
	Now() time.Time
	Since(time.Time) time.Duration
	NewTicker(time.Duration) Ticker
}

// NewClock returns the system clock.
func NewClock() Clock {
	return clock{}
}

type clock struct{}

func (clock) Now() time.Time {
	return time.Now()
}

func (clock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (clock) NewTicker(d time.Duration) Ticker {
	return &ticker{t: time.NewTicker(d)}
}
