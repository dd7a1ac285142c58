package agent

import (
	"sync"
	"sync/atomic"

	"github.com/trask/brave-agent/internal/completion"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

// IncomingSpan is a transaction: the root span of the work done for one
// inbound request. It reaches the tracer exactly once. When declared async
// with SetAsync, it finishes on the later of its End and SetAsyncComplete.
type IncomingSpan struct {
	agent  *Agent
	span   *tracer.Span
	msg    MessageSupplier
	holder *Holder

	user        atomic.Pointer[string]
	err         atomic.Pointer[error]
	async       atomic.Pointer[completion.TwoPart]
	requestInfo atomic.Pointer[RequestInfo]
	finished    int32

	// mu guards the priorities of the transaction type and name.
	mu           sync.Mutex
	typePriority int
	namePriority int
}

var _ Span = (*IncomingSpan)(nil)

func newIncomingSpan(a *Agent, span *tracer.Span, msg MessageSupplier, holder *Holder) *IncomingSpan {
	return &IncomingSpan{
		agent:  a,
		span:   span,
		msg:    msg,
		holder: holder,
	}
}

func (s *IncomingSpan) End() {
	s.end()
}

// EndWithError records err unless an error was already recorded, then ends.
func (s *IncomingSpan) EndWithError(err error) {
	s.SetError(err)
	s.end()
}

func (s *IncomingSpan) EndWithInfo(error) {
	s.end()
}

func (s *IncomingSpan) Extend() Timer {
	panic(newErrUnsupported("Extend", "an incoming span"))
}

func (s *IncomingSpan) MessageSupplier() MessageSupplier {
	return s.msg
}

// SpanContext is the propagation context of the transaction.
func (s *IncomingSpan) SpanContext() propagation.SpanContext {
	return s.span.SpanContext()
}

// SetAsync declares an outstanding async completion. Only the first call
// installs the gate.
func (s *IncomingSpan) SetAsync() {
	s.async.CompareAndSwap(nil, &completion.TwoPart{})
}

// SetAsyncComplete signals the async completion. It returns
// ErrAsyncNotDeclared if SetAsync was never called.
func (s *IncomingSpan) SetAsyncComplete() error {
	gate := s.async.Load()
	if gate == nil {
		return ErrAsyncNotDeclared
	}
	if gate.CompletePart1() {
		s.finish()
	}
	return nil
}

func (s *IncomingSpan) SetUser(user string) {
	s.user.Store(&user)
}

func (s *IncomingSpan) User() string {
	if u := s.user.Load(); u != nil {
		return *u
	}
	return ""
}

// SetError records err unless an error was already recorded. Nil errors are
// ignored.
func (s *IncomingSpan) SetError(err error) {
	if err == nil {
		return
	}
	s.err.CompareAndSwap(nil, &err)
}

// Err returns the first recorded error.
func (s *IncomingSpan) Err() error {
	if err := s.err.Load(); err != nil {
		return *err
	}
	return nil
}

func (s *IncomingSpan) RequestInfo() *RequestInfo {
	return s.requestInfo.Load()
}

func (s *IncomingSpan) SetRequestInfo(info *RequestInfo) {
	s.requestInfo.Store(info)
}

// Finished reports whether the transaction was handed to the tracer.
func (s *IncomingSpan) Finished() bool {
	return atomic.LoadInt32(&s.finished) == 1
}

func (s *IncomingSpan) setType(transactionType string, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if priority < s.typePriority {
		return
	}
	s.typePriority = priority
	s.span.SetTag(TagTransactionType, transactionType)
}

func (s *IncomingSpan) setName(transactionName string, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if priority < s.namePriority {
		return
	}
	s.namePriority = priority
	s.span.SetOperationName(transactionName)
}

func (s *IncomingSpan) end() {
	s.holder.clearTransaction(s)
	if gate := s.async.Load(); gate == nil || gate.CompletePart2() {
		s.finish()
	}
}

func (s *IncomingSpan) finish() {
	if !atomic.CompareAndSwapInt32(&s.finished, 0, 1) {
		return
	}
	if user := s.User(); user != "" {
		s.span.SetTag(TagTransactionUser, user)
	}
	if info := s.RequestInfo(); info != nil {
		s.span.SetTag(TagHTTPMethod, info.Method)
		s.span.SetTag(TagHTTPURL, info.URI)
		if info.RemoteAddr != "" {
			s.span.SetTag(TagPeerAddress, info.RemoteAddr)
		}
	}
	s.span.Error(s.Err())
	s.span.Finish()
	s.agent.metrics.TransactionFinished()
}
