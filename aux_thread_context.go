package agent

import (
	"sync/atomic"

	"github.com/trask/brave-agent/internal/completion"
	"github.com/trask/brave-agent/internal/metrics"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

// AuxThreadContext continues a transaction on another goroutine. It is
// immutable and may be started any number of times, from any goroutine.
type AuxThreadContext struct {
	agent    *Agent
	incoming *IncomingSpan
}

// Start makes the transaction active in holder, the Holder of the calling
// goroutine, and returns the span to end when the goroutine is done with it.
// If holder is already active, nothing changes and NopSpan is returned.
func (a *AuxThreadContext) Start(holder *Holder) Span {
	return a.start(holder, false)
}

// StartAndMarkAsyncComplete is Start followed by SetTransactionAsyncComplete
// on the resulting context. The transaction then finishes once the returned
// span ends.
func (a *AuxThreadContext) StartAndMarkAsyncComplete(holder *Holder) Span {
	return a.start(holder, true)
}

func (a *AuxThreadContext) start(holder *Holder, markAsyncComplete bool) Span {
	if existing := holder.Get(); existing != nil {
		a.agent.metrics.AuxStarted(true)
		if markAsyncComplete {
			existing.SetTransactionAsyncComplete()
		}
		return NopSpan
	}

	current := tracer.NewCurrentTraceContext(propagation.SpanContext{})
	scope := current.NewScope(a.incoming.SpanContext())
	gate := &completion.TwoPart{}
	tc := newThreadContext(a.agent, a.incoming, current, 0, 0, gate)
	holder.Set(tc)
	a.agent.metrics.AuxStarted(false)
	a.agent.metrics.SpanStarted(metrics.KindAux)
	if markAsyncComplete {
		tc.SetTransactionAsyncComplete()
	}
	return &auxSpan{
		agent:    a.agent,
		scope:    scope,
		holder:   holder,
		gate:     gate,
		incoming: a.incoming,
	}
}

// auxSpan has no native span of its own: its work is attributed to the
// transaction.
type auxSpan struct {
	agent    *Agent
	scope    *tracer.Scope
	holder   *Holder
	gate     *completion.TwoPart
	incoming *IncomingSpan
	ended    int32
}

func (s *auxSpan) End() {
	s.end()
}

// EndWithError records err on the transaction unless it already has an
// error, then ends.
func (s *auxSpan) EndWithError(err error) {
	s.incoming.SetError(err)
	s.end()
}

func (s *auxSpan) EndWithInfo(error) {
	s.end()
}

func (s *auxSpan) Extend() Timer {
	panic(newErrUnsupported("Extend", "an auxiliary thread span"))
}

func (s *auxSpan) MessageSupplier() MessageSupplier {
	return nil
}

func (s *auxSpan) end() {
	if !atomic.CompareAndSwapInt32(&s.ended, 0, 1) {
		return
	}
	s.scope.Close()
	s.holder.Clear()
	if s.gate.CompletePart2() {
		s.agent.asyncComplete(s.incoming, "AuxThreadContext.End")
	}
}
