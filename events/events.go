// Package events carries the reporting mechanism of the agent and its tracer.
// Neither ever logs directly: they emit Events to a handler, which may log
// them, count them or forward them on a channel. Events may be cast to
// specific event types in order to access additional information.
//
// NOTE: To ensure that events can be accurately identified, each event type
// contains a sentinel method matching the name of the type. This method is a
// no-op, it is only used for type coercion.
package events

import (
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
)

type Event interface {
	Event()
	String() string
}

// The ErrorEvent type can be used to filter events for errors. The `Err`
// method returns the underlying error.
type ErrorEvent interface {
	Event
	error
	Err() error
}

// Handler receives emitted events. Handlers must not block.
type Handler func(Event)

var globalHandler atomic.Value

func init() {
	SetGlobalEventHandler(NewOnEventLogOneError())
}

// SetGlobalEventHandler sets the handler used by every component that was
// not configured with its own handler.
func SetGlobalEventHandler(handler Handler) {
	if handler == nil {
		handler = func(Event) {}
	}
	globalHandler.Store(handler)
}

// Emit hands the event to the global handler.
func Emit(event Event) {
	globalHandler.Load().(Handler)(event)
}

// Emitter returns handler, or Emit when handler is nil.
func Emitter(handler Handler) Handler {
	if handler != nil {
		return handler
	}
	return Emit
}

// FlushErrorState lists the possible causes for a flush to fail.
type FlushErrorState string

const (
	FlushErrorRecorderClosed FlushErrorState = "flush failed, the recorder is closed"
	FlushErrorDisabled       FlushErrorState = "flush failed, reporting was disabled by the collector"
	FlushErrorTransport      FlushErrorState = "flush failed, could not send report"
	FlushErrorReport         FlushErrorState = "flush failed, report contained errors"
)

// EventFlushError occurs when a flush fails to send. Call the `State` method
// to determine the type of error.
type EventFlushError interface {
	ErrorEvent
	EventFlushError()
	State() FlushErrorState
}

type eventFlushError struct {
	err   error
	state FlushErrorState
}

func NewEventFlushError(err error, state FlushErrorState) EventFlushError {
	return &eventFlushError{err: err, state: state}
}

func (*eventFlushError) Event()           {}
func (*eventFlushError) EventFlushError() {}

func (e *eventFlushError) State() FlushErrorState {
	return e.state
}

func (e *eventFlushError) String() string {
	return string(e.state) + ": " + e.err.Error()
}

func (e *eventFlushError) Error() string {
	return e.String()
}

func (e *eventFlushError) Err() error {
	return e.err
}

// EventConnectionError occurs when a reporter fails to maintain its
// connection with the backend.
type EventConnectionError interface {
	ErrorEvent
	EventConnectionError()
}

type eventConnectionError struct {
	err error
}

func NewEventConnectionError(err error) EventConnectionError {
	return &eventConnectionError{err: err}
}

func (*eventConnectionError) Event()                {}
func (*eventConnectionError) EventConnectionError() {}

func (e *eventConnectionError) String() string {
	return e.err.Error()
}

func (e *eventConnectionError) Error() string {
	return e.err.Error()
}

func (e *eventConnectionError) Err() error {
	return e.err
}

// EventStatusReport occurs on every successful flush. It contains the counts
// collected since the previous successful flush.
type EventStatusReport interface {
	Event
	EventStatusReport()
	StartTime() time.Time
	FinishTime() time.Time
	Duration() time.Duration
	SentSpans() int
	DroppedSpans() int
}

type eventStatusReport struct {
	startTime    time.Time
	finishTime   time.Time
	sentSpans    int
	droppedSpans int
}

func NewEventStatusReport(startTime, finishTime time.Time, sentSpans, droppedSpans int) EventStatusReport {
	return &eventStatusReport{
		startTime:    startTime,
		finishTime:   finishTime,
		sentSpans:    sentSpans,
		droppedSpans: droppedSpans,
	}
}

func (*eventStatusReport) Event()             {}
func (*eventStatusReport) EventStatusReport() {}

func (s *eventStatusReport) StartTime() time.Time {
	return s.startTime
}

func (s *eventStatusReport) FinishTime() time.Time {
	return s.finishTime
}

func (s *eventStatusReport) Duration() time.Duration {
	return s.finishTime.Sub(s.startTime)
}

func (s *eventStatusReport) SentSpans() int {
	return s.sentSpans
}

func (s *eventStatusReport) DroppedSpans() int {
	return s.droppedSpans
}

func (s *eventStatusReport) String() string {
	return fmt.Sprint("STATUS REPORT start: ", s.startTime, ", end: ", s.finishTime,
		", sent spans: ", s.sentSpans, ", dropped spans: ", s.droppedSpans)
}

// EventPropagationError occurs when a carrier held propagation fields that
// could not be decoded. The transaction still starts, as a new trace.
type EventPropagationError interface {
	ErrorEvent
	EventPropagationError()
}

type eventPropagationError struct {
	err error
}

func NewEventPropagationError(err error) EventPropagationError {
	return &eventPropagationError{err: err}
}

func (*eventPropagationError) Event()                 {}
func (*eventPropagationError) EventPropagationError() {}

func (e *eventPropagationError) String() string {
	return "propagation error: " + e.err.Error()
}

func (e *eventPropagationError) Error() string {
	return e.String()
}

func (e *eventPropagationError) Err() error {
	return e.err
}

// EventContractViolation occurs when the agent API is called out of order,
// for instance completing an async transaction that was never declared
// async. The offending call is ignored.
type EventContractViolation interface {
	ErrorEvent
	EventContractViolation()
	Operation() string
}

type eventContractViolation struct {
	operation string
	err       error
}

func NewEventContractViolation(operation string, err error) EventContractViolation {
	return &eventContractViolation{operation: operation, err: err}
}

func (*eventContractViolation) Event()                  {}
func (*eventContractViolation) EventContractViolation() {}

func (e *eventContractViolation) Operation() string {
	return e.operation
}

func (e *eventContractViolation) String() string {
	return e.operation + ": " + e.err.Error()
}

func (e *eventContractViolation) Error() string {
	return e.String()
}

func (e *eventContractViolation) Err() error {
	return e.err
}

// EventUnsupportedTracer occurs when a tracer being passed to a helper
// function is not the agent's native tracer.
type EventUnsupportedTracer interface {
	ErrorEvent
	EventUnsupportedTracer()
	UnsupportedTracer() opentracing.Tracer
}

type eventUnsupportedTracer struct {
	unsupportedTracer opentracing.Tracer
	err               error
}

func NewEventUnsupportedTracer(tracer opentracing.Tracer) EventUnsupportedTracer {
	return &eventUnsupportedTracer{
		unsupportedTracer: tracer,
		err:               fmt.Errorf("unsupported tracer type: %v", reflect.TypeOf(tracer)),
	}
}

func (*eventUnsupportedTracer) Event()                  {}
func (*eventUnsupportedTracer) EventUnsupportedTracer() {}

func (e *eventUnsupportedTracer) UnsupportedTracer() opentracing.Tracer {
	return e.unsupportedTracer
}

func (e *eventUnsupportedTracer) String() string {
	return e.err.Error()
}

func (e *eventUnsupportedTracer) Error() string {
	return e.err.Error()
}

func (e *eventUnsupportedTracer) Err() error {
	return e.err
}
