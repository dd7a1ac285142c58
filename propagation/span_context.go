package propagation

import (
	"fmt"
	"strconv"
)

// Sampling is the sampling decision carried along with a trace context.
type Sampling uint8

const (
	// SamplingUnset defers the decision to the receiving tracer.
	SamplingUnset Sampling = iota
	SamplingAccept
	SamplingReject
	// SamplingDebug forces the trace to be sampled and flags it for debug.
	SamplingDebug
)

// Decided reports whether a sampling decision has been made, and if so,
// whether the trace is sampled.
func (s Sampling) Decided() (sampled bool, ok bool) {
	switch s {
	case SamplingAccept, SamplingDebug:
		return true, true
	case SamplingReject:
		return false, true
	}
	return false, false
}

func (s Sampling) String() string {
	switch s {
	case SamplingAccept:
		return "accept"
	case SamplingReject:
		return "reject"
	case SamplingDebug:
		return "debug"
	}
	return "unset"
}

// SpanContext identifies a span's position in a distributed trace.
type SpanContext struct {
	// TraceIDHigh holds the upper 64 bits of a 128-bit trace id, zero for
	// 64-bit trace ids.
	TraceIDHigh uint64
	TraceID     uint64

	// ParentID is the id of the span's parent, or 0 for a root span.
	ParentID uint64
	SpanID   uint64

	Sampling Sampling

	// Baggage is copied on write, see WithBaggageItem.
	Baggage map[string]string
}

// IsValid reports whether the context carries both a trace id and a span id.
func (c SpanContext) IsValid() bool {
	return (c.TraceID != 0 || c.TraceIDHigh != 0) && c.SpanID != 0
}

// Sampled reports whether the span is sampled; an undecided context is
// reported as not sampled.
func (c SpanContext) Sampled() bool {
	sampled, _ := c.Sampling.Decided()
	return sampled
}

// TraceIDString renders the trace id as 16 or 32 lower-case hex characters.
func (c SpanContext) TraceIDString() string {
	if c.TraceIDHigh != 0 {
		return fmt.Sprintf("%016x%016x", c.TraceIDHigh, c.TraceID)
	}
	return fmt.Sprintf("%016x", c.TraceID)
}

// SpanIDString renders the span id as 16 lower-case hex characters.
func (c SpanContext) SpanIDString() string {
	return fmt.Sprintf("%016x", c.SpanID)
}

func (c SpanContext) String() string {
	return c.TraceIDString() + "/" + strconv.FormatUint(c.SpanID, 16)
}

// ForeachBaggageItem belongs to the opentracing.SpanContext interface
func (c SpanContext) ForeachBaggageItem(handler func(k, v string) bool) {
	for k, v := range c.Baggage {
		if !handler(k, v) {
			break
		}
	}
}

// WithBaggageItem returns an entirely new SpanContext with the given
// key:value baggage pair set.
func (c SpanContext) WithBaggageItem(key, val string) SpanContext {
	baggage := make(map[string]string, len(c.Baggage)+1)
	for k, v := range c.Baggage {
		baggage[k] = v
	}
	baggage[key] = val
	c.Baggage = baggage
	return c
}

// Extracted is the result of reading a carrier: either a full span context,
// or only the sampling flags when no valid context was present.
type Extracted struct {
	Context  SpanContext
	Sampling Sampling

	// Err describes why propagation fields present in the carrier were
	// discarded. It is informational only: the result is still usable and
	// degrades to "no parent".
	Err error
}

// HasContext reports whether a parent context was found.
func (e Extracted) HasContext() bool {
	return e.Context.IsValid()
}
