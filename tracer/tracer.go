// Package tracer is the native tracer driven by the agent: it allocates
// ids, makes sampling decisions, keeps the per-goroutine scope stack and
// hands finished spans to a SpanRecorder. It also implements
// opentracing.Tracer so that existing opentracing instrumentation can share
// traces with the agent.
package tracer

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/randx"
	"github.com/trask/brave-agent/propagation"
)

type Tracer struct {
	cfg  *config
	emit events.Handler
}

var _ opentracing.Tracer = (*Tracer)(nil)

func New(opts ...Option) *Tracer {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return &Tracer{cfg: c, emit: events.Emitter(c.onEvent)}
}

// NewTrace starts the root span of a new trace, consulting the sampler.
func (t *Tracer) NewTrace(name string) *Span {
	return t.newRoot(name, propagation.SamplingUnset)
}

// NextSpan starts a child of the extracted context, or, when none was
// extracted, a new trace honoring the extracted sampling decision.
func (t *Tracer) NextSpan(name string, extracted propagation.Extracted) *Span {
	if extracted.HasContext() {
		return t.NewChild(name, extracted.Context)
	}
	return t.newRoot(name, extracted.Sampling)
}

// JoinSpan continues the span described by sc, sharing its span id with the
// caller. Without join support it starts a child instead.
func (t *Tracer) JoinSpan(name string, sc propagation.SpanContext) *Span {
	if !sc.IsValid() {
		return t.newRoot(name, sc.Sampling)
	}
	if !t.cfg.supportsJoin {
		return t.NewChild(name, sc)
	}
	sc.Sampling = t.decide(sc.TraceID, sc.Sampling)
	s := t.start(name, sc)
	s.raw.Shared = true
	return s
}

// NewChild starts a child of parent in the same trace.
func (t *Tracer) NewChild(name string, parent propagation.SpanContext) *Span {
	if !parent.IsValid() {
		return t.newRoot(name, parent.Sampling)
	}
	return t.start(name, propagation.SpanContext{
		TraceIDHigh: parent.TraceIDHigh,
		TraceID:     parent.TraceID,
		ParentID:    parent.SpanID,
		SpanID:      randx.GUID(t.cfg.idOptions...),
		Sampling:    t.decide(parent.TraceID, parent.Sampling),
		Baggage:     parent.Baggage,
	})
}

// NextSpanIn starts a child of the context in scope of current without
// changing the scope.
func (t *Tracer) NextSpanIn(name string, current *CurrentTraceContext) *Span {
	if parent, ok := current.Get(); ok {
		return t.NewChild(name, parent)
	}
	return t.NewTrace(name)
}

// StartScopedSpan starts a child of the context in scope of current and puts
// the new span in scope until it finishes.
func (t *Tracer) StartScopedSpan(name string, current *CurrentTraceContext) *Span {
	s := t.NextSpanIn(name, current)
	s.scope = current.NewScope(s.raw.Context)
	return s
}

// Flush reports buffered spans now, when the recorder buffers.
func (t *Tracer) Flush(ctx context.Context) error {
	if f, ok := t.cfg.recorder.(interface{ Flush(context.Context) error }); ok {
		return f.Flush(ctx)
	}
	return nil
}

// Close flushes and stops the recorder, when it can be stopped.
func (t *Tracer) Close(ctx context.Context) error {
	if c, ok := t.cfg.recorder.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

func (t *Tracer) newRoot(name string, sampling propagation.Sampling) *Span {
	sc := propagation.SpanContext{}
	if t.cfg.traceID128Bit {
		sc.TraceIDHigh, sc.TraceID = randx.GUID2(t.cfg.idOptions...)
	} else {
		sc.TraceID = randx.GUID(t.cfg.idOptions...)
	}
	sc.SpanID = randx.GUID(t.cfg.idOptions...)
	sc.Sampling = t.decide(sc.TraceID, sampling)
	return t.start(name, sc)
}

func (t *Tracer) decide(traceID uint64, sampling propagation.Sampling) propagation.Sampling {
	if _, ok := sampling.Decided(); ok {
		return sampling
	}
	if t.cfg.sampler.IsSampled(traceID) {
		return propagation.SamplingAccept
	}
	return propagation.SamplingReject
}

func (t *Tracer) start(name string, sc propagation.SpanContext) *Span {
	return &Span{
		tracer: t,
		raw: RawSpan{
			Context:          sc,
			Operation:        name,
			LocalServiceName: t.cfg.localServiceName,
			Start:            t.cfg.clock.Now(),
		},
	}
}

// StartSpan belongs to the opentracing.Tracer interface. The first reference
// to a context of this tracer becomes the parent.
func (t *Tracer) StartSpan(operationName string, opts ...opentracing.StartSpanOption) opentracing.Span {
	sso := opentracing.StartSpanOptions{}
	for _, o := range opts {
		o.Apply(&sso)
	}

	var s *Span
	for _, ref := range sso.References {
		if parent, ok := ref.ReferencedContext.(propagation.SpanContext); ok {
			s = t.NewChild(operationName, parent)
			break
		}
	}
	if s == nil {
		s = t.NewTrace(operationName)
	}
	if !sso.StartTime.IsZero() {
		s.raw.Start = sso.StartTime
	}
	for k, v := range sso.Tags {
		s.SetTag(k, v)
	}
	return s
}
