// Package agent is the span lifecycle engine behind instrumented code. It
// turns an inbound carrier into a transaction (an IncomingSpan) and an active
// ThreadContext, creates child spans for outgoing calls and queries, and hands
// transactions off to other goroutines while making sure every transaction
// reaches the tracer exactly once.
package agent

// Span is the handle instrumentation receives for a unit of work. Exactly one
// of the End methods is expected per handle.
type Span interface {
	End()
	// EndWithError ends the span and records err on it.
	EndWithError(err error)
	// EndWithInfo ends the span without recording err as a failure.
	EndWithInfo(err error)
	// Extend resumes timing of an ended span. Transactions and auxiliary
	// spans have no timer and panic with an ErrUnsupported.
	Extend() Timer
	MessageSupplier() MessageSupplier
}

// AsyncSpan is a span whose end happens on another goroutine than its start.
type AsyncSpan interface {
	Span
	StopSyncTimer()
	ExtendSyncTimer() Timer
}

// QuerySpan is a span around a database or remote query.
type QuerySpan interface {
	Span
	RowNavigationAttempted()
	IncrementCurrentRow()
	SetCurrentRow(row int64)
}

type AsyncQuerySpan interface {
	QuerySpan
	StopSyncTimer()
	ExtendSyncTimer() Timer
}

// Timer measures a section of work inside a span.
type Timer interface {
	Stop()
}

// TimerName identifies a timer kind. Timers are not recorded by this agent;
// the name is accepted for compatibility with instrumentation.
type TimerName string

// MessageSupplier lazily renders the description of a span.
type MessageSupplier interface {
	Message() string
}

// MessageFunc adapts a function to the MessageSupplier interface.
type MessageFunc func() string

func (f MessageFunc) Message() string {
	return f()
}

// Message returns a MessageSupplier for a fixed text.
func Message(text string) MessageSupplier {
	return MessageFunc(func() string { return text })
}

// RequestInfo describes the server request that started a transaction.
type RequestInfo struct {
	Method     string
	URI        string
	RemoteAddr string
}
