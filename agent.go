package agent

import (
	"github.com/opentracing/opentracing-go/ext"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/metrics"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

// Agent starts transactions on a native tracer.
type Agent struct {
	tracer  *tracer.Tracer
	emit    events.Handler
	metrics *metrics.Metrics
}

// New returns an Agent starting transactions on t.
func New(t *tracer.Tracer, opts ...Option) (*Agent, error) {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	m, err := metrics.New(c.namespace, c.registerer)
	if err != nil {
		return nil, err
	}
	return &Agent{
		tracer:  t,
		emit:    events.Emitter(c.onEvent),
		metrics: m,
	}, nil
}

func (a *Agent) Tracer() *tracer.Tracer {
	return a.tracer
}

// StartIncomingSpan starts a transaction for a request read through getter
// from carrier, and makes it active in holder. A propagated context is
// joined; otherwise a new trace starts, honoring any propagated sampling
// decision. Undecodable propagation fields emit an EventPropagationError and
// start a new trace.
//
// When holder is already active the request is nested in a transaction and
// NopSpan is returned.
func StartIncomingSpan[C any](a *Agent, transactionType, transactionName string, getter propagation.Getter[C], carrier C,
	msg MessageSupplier, timer TimerName, holder *Holder, nestingGroupID, suppressionKeyID int) Span {
	if holder.Get() != nil {
		return NopSpan
	}

	extracted := propagation.Extract(carrier, getter)
	if extracted.Err != nil {
		a.emit(events.NewEventPropagationError(extracted.Err))
	}
	var span *tracer.Span
	if extracted.HasContext() {
		span = a.tracer.JoinSpan(transactionName, extracted.Context)
	} else {
		span = a.tracer.NextSpan(transactionName, extracted)
	}
	span.SetTag(TagTransactionType, transactionType)
	ext.SpanKind.Set(span, ext.SpanKindRPCServerEnum)

	incoming := newIncomingSpan(a, span, msg, holder)
	current := tracer.NewCurrentTraceContext(span.SpanContext())
	holder.Set(newThreadContext(a, incoming, current, nestingGroupID, suppressionKeyID, nil))
	a.metrics.SpanStarted(metrics.KindIncoming)
	return incoming
}
