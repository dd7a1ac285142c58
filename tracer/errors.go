package tracer

import "fmt"

// ErrClosed is returned when flushing or closing a recorder that is already
// closed.
type ErrClosed interface {
	Closed()
	error
}

// ErrDisabled is returned by a Reporter when the backend asked the client to
// stop reporting. The recorder then drops every further span.
type ErrDisabled interface {
	Disabled()
	error
}

// ErrDroppedSpans is returned by a flush that had to drop spans.
type ErrDroppedSpans interface {
	DroppedSpans() int
	error
}

type closedError string

func newErrClosed(msg string) ErrClosed {
	return closedError(msg)
}

func (closedError) Closed() {}

func (e closedError) Error() string {
	return string(e)
}

type disabledError string

// NewErrDisabled returns an ErrDisabled with the given reason.
func NewErrDisabled(msg string) ErrDisabled {
	return disabledError(msg)
}

func (disabledError) Disabled() {}

func (e disabledError) Error() string {
	return string(e)
}

type droppedSpansError struct {
	droppedSpans int
	err          error
}

func newErrDroppedSpans(droppedSpans int, err error) ErrDroppedSpans {
	return &droppedSpansError{droppedSpans: droppedSpans, err: err}
}

func (e *droppedSpansError) DroppedSpans() int {
	return e.droppedSpans
}

func (e *droppedSpansError) Error() string {
	return fmt.Sprintf("dropped %d spans: %v", e.droppedSpans, e.err)
}

func (e *droppedSpansError) Unwrap() error {
	return e.err
}
