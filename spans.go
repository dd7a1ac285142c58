package agent

import (
	"github.com/trask/brave-agent/tracer"
)

var (
	// NopSpan is returned where no native span is created: local spans,
	// nested transactions and re-entrant auxiliary starts. Ending it has no
	// effect.
	NopSpan AsyncQuerySpan = nopSpan{}

	NopTimer Timer = nopTimer{}
)

type nopSpan struct{}

func (nopSpan) End()                             {}
func (nopSpan) EndWithError(error)               {}
func (nopSpan) EndWithInfo(error)                {}
func (nopSpan) Extend() Timer                    { return NopTimer }
func (nopSpan) MessageSupplier() MessageSupplier { return nil }
func (nopSpan) RowNavigationAttempted()          {}
func (nopSpan) IncrementCurrentRow()             {}
func (nopSpan) SetCurrentRow(int64)              {}
func (nopSpan) StopSyncTimer()                   {}
func (nopSpan) ExtendSyncTimer() Timer           { return NopTimer }

type nopTimer struct{}

func (nopTimer) Stop() {}

type outgoingSpan struct {
	span *tracer.Span
	msg  MessageSupplier
}

func (s *outgoingSpan) End() {
	s.span.Finish()
}

func (s *outgoingSpan) EndWithError(err error) {
	s.span.Error(err).Finish()
}

func (s *outgoingSpan) EndWithInfo(error) {
	s.span.Finish()
}

func (s *outgoingSpan) Extend() Timer {
	return NopTimer
}

func (s *outgoingSpan) MessageSupplier() MessageSupplier {
	return s.msg
}

type asyncOutgoingSpan struct {
	outgoingSpan
}

func (s *asyncOutgoingSpan) StopSyncTimer() {}

func (s *asyncOutgoingSpan) ExtendSyncTimer() Timer {
	return NopTimer
}

// querySpan counts the rows read through it; the count is tagged at end.
type querySpan struct {
	span *tracer.Span
	msg  MessageSupplier
	rows int64
}

func (s *querySpan) End() {
	s.finish(nil)
}

func (s *querySpan) EndWithError(err error) {
	s.finish(err)
}

func (s *querySpan) EndWithInfo(error) {
	s.finish(nil)
}

func (s *querySpan) Extend() Timer {
	return NopTimer
}

func (s *querySpan) MessageSupplier() MessageSupplier {
	return s.msg
}

func (s *querySpan) RowNavigationAttempted() {}

func (s *querySpan) IncrementCurrentRow() {
	s.rows++
}

// SetCurrentRow records the position of a cursor; the highest position seen
// is the row count.
func (s *querySpan) SetCurrentRow(row int64) {
	if row > s.rows {
		s.rows = row
	}
}

func (s *querySpan) finish(err error) {
	if s.rows > 0 {
		s.span.SetTag(TagQueryRows, s.rows)
	}
	s.span.Error(err).Finish()
}

type asyncQuerySpan struct {
	querySpan
}

func (s *asyncQuerySpan) StopSyncTimer() {}

func (s *asyncQuerySpan) ExtendSyncTimer() Timer {
	return NopTimer
}
