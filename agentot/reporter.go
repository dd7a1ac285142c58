// Package agentot replays spans finished by the agent into another
// opentracing.Tracer, such as a jaeger tracer.
//
// Span ids are allocated by the target tracer. Parent links survive when the
// target tracer can extract B3 headers from opentracing.HTTPHeaders carriers.
package agentot

import (
	"context"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

// Reporter is a tracer.Reporter writing spans into an opentracing.Tracer.
type Reporter struct {
	cfg    *config
	emit   events.Handler
	target opentracing.Tracer
}

var _ tracer.Reporter = (*Reporter)(nil)

func NewReporter(target opentracing.Tracer, opts ...Option) *Reporter {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return &Reporter{cfg: c, emit: events.Emitter(c.onEvent), target: target}
}

// Report replays spans in order, stopping early if ctx is done.
func (r *Reporter) Report(ctx context.Context, spans []tracer.RawSpan) error {
	for _, raw := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.replay(raw)
	}
	return nil
}

func (r *Reporter) replay(raw tracer.RawSpan) {
	opts := []opentracing.StartSpanOption{
		opentracing.StartTime(raw.Start),
		opentracing.Tags(raw.Tags),
	}
	if parent, ok := r.parent(raw); ok {
		opts = append(opts, opentracing.ChildOf(parent))
	}

	span := r.target.StartSpan(raw.Operation, opts...)
	if r.cfg.originalIDs {
		span.SetTag(OriginalTraceIDKey, raw.Context.TraceIDString())
		span.SetTag(OriginalSpanIDKey, raw.Context.SpanIDString())
	}
	raw.Context.ForeachBaggageItem(func(k, v string) bool {
		span.SetBaggageItem(k, v)
		return true
	})
	span.FinishWithOptions(opentracing.FinishOptions{
		FinishTime: raw.Finish(),
		LogRecords: raw.Logs,
	})
}

// parent resolves the span raw descends from in the target tracer. A joined
// span shares its id with the caller's span, so the caller's span is the
// parent.
func (r *Reporter) parent(raw tracer.RawSpan) (opentracing.SpanContext, bool) {
	parentID := raw.Context.ParentID
	if raw.Shared {
		parentID = raw.Context.SpanID
	}
	if parentID == 0 {
		return nil, false
	}

	carrier := http.Header{}
	propagation.Inject(propagation.SpanContext{
		TraceIDHigh: raw.Context.TraceIDHigh,
		TraceID:     raw.Context.TraceID,
		SpanID:      parentID,
		Sampling:    raw.Context.Sampling,
	}, carrier, propagation.HTTPHeaders)

	parent, err := r.target.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(carrier))
	switch err {
	case nil:
		return parent, true
	case opentracing.ErrSpanContextNotFound, opentracing.ErrUnsupportedFormat:
	default:
		r.emit(events.NewEventPropagationError(err))
	}
	return nil, false
}
