package timex

import "time"

// Ticker delivers ticks at intervals. Like time.Ticker, ticks are dropped
// for slow receivers.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type ticker struct {
	t *time.Ticker
}

func (t *ticker) C() <-chan time.Time {
	return t.t.C
}

func (t *ticker) Stop() {
	t.t.Stop()
}
