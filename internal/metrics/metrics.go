// Package metrics counts span lifecycle events on prometheus collectors.
// A nil *Metrics is valid and counts nothing.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "brave_agent"

// Span kinds used as the kind label of spans_started_total.
const (
	KindIncoming      = "incoming"
	KindAux           = "aux"
	KindOutgoing      = "outgoing"
	KindAsyncOutgoing = "async_outgoing"
	KindQuery         = "query"
	KindAsyncQuery    = "async_query"
)

type Metrics struct {
	spansStarted         *prometheus.CounterVec
	transactionsFinished prometheus.Counter
	auxStarts            *prometheus.CounterVec
	spansDropped         prometheus.Counter
	spansReported        prometheus.Counter
}

// New registers the counters on reg. Counters already registered under the
// same names, for instance by a tracer sharing the registerer with an agent,
// are reused.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{}
	var err error
	if m.spansStarted, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "spans_started_total",
		Help:      "Spans started, by kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if m.transactionsFinished, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_finished_total",
		Help:      "Incoming spans reported to the tracer.",
	})); err != nil {
		return nil, err
	}
	if m.auxStarts, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aux_starts_total",
		Help:      "Auxiliary context starts, by whether the goroutine already had an active context.",
	}, []string{"reentrant"})); err != nil {
		return nil, err
	}
	if m.spansDropped, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recorder_spans_dropped_total",
		Help:      "Finished spans dropped by the recorder.",
	})); err != nil {
		return nil, err
	}
	if m.spansReported, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recorder_spans_reported_total",
		Help:      "Finished spans handed to the reporter.",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) SpanStarted(kind string) {
	if m == nil {
		return
	}
	m.spansStarted.WithLabelValues(kind).Inc()
}

func (m *Metrics) TransactionFinished() {
	if m == nil {
		return
	}
	m.transactionsFinished.Inc()
}

func (m *Metrics) AuxStarted(reentrant bool) {
	if m == nil {
		return
	}
	m.auxStarts.WithLabelValues(strconv.FormatBool(reentrant)).Inc()
}

func (m *Metrics) SpansDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.spansDropped.Add(float64(n))
}

func (m *Metrics) SpansReported(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.spansReported.Add(float64(n))
}
