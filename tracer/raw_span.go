package tracer

import (
	"time"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/trask/brave-agent/propagation"
)

// RawSpan is the recorded state of a finished span.
type RawSpan struct {
	// Context carries the trace, span and parent ids as propagated.
	Context propagation.SpanContext

	// Shared is set on spans joined to an incoming context: the span id was
	// allocated by the caller.
	Shared bool

	Operation        string
	LocalServiceName string

	// We store <start, duration> rather than <start, end> so that only
	// one of the timestamps has global clock uncertainty issues.
	Start    time.Time
	Duration time.Duration

	Tags opentracing.Tags
	Logs []opentracing.LogRecord
}

// Finish is the end timestamp of the span.
func (r RawSpan) Finish() time.Time {
	return r.Start.Add(r.Duration)
}

// Err returns the error recorded with Span.Error, if any.
func (r RawSpan) Err() error {
	for _, rec := range r.Logs {
		for _, f := range rec.Fields {
			if f.Key() != "error.object" {
				continue
			}
			if err, ok := f.Value().(error); ok {
				return err
			}
		}
	}
	return nil
}
