package agent

import (
	"github.com/opentracing/opentracing-go/ext"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/completion"
	"github.com/trask/brave-agent/internal/metrics"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

// ThreadContext is the active context of one goroutine inside a
// transaction. It is owned by that goroutine and must not be shared; use
// CreateAuxThreadContext to continue the transaction elsewhere.
type ThreadContext struct {
	agent    *Agent
	incoming *IncomingSpan
	current  *tracer.CurrentTraceContext

	nestingGroupID   int
	suppressionKeyID int

	// auxCompletion is set on contexts started from an AuxThreadContext:
	// part 1 is the async completion signal, part 2 the end of the
	// auxiliary span.
	auxCompletion *completion.TwoPart
}

func newThreadContext(a *Agent, incoming *IncomingSpan, current *tracer.CurrentTraceContext,
	nestingGroupID, suppressionKeyID int, auxCompletion *completion.TwoPart) *ThreadContext {
	return &ThreadContext{
		agent:            a,
		incoming:         incoming,
		current:          current,
		nestingGroupID:   nestingGroupID,
		suppressionKeyID: suppressionKeyID,
		auxCompletion:    auxCompletion,
	}
}

// IsInTransaction is always true; goroutines outside a transaction have no
// ThreadContext.
func (tc *ThreadContext) IsInTransaction() bool {
	return true
}

// Transaction returns the transaction this context belongs to.
func (tc *ThreadContext) Transaction() *IncomingSpan {
	return tc.incoming
}

// SpanContext is the propagation context currently in scope.
func (tc *ThreadContext) SpanContext() propagation.SpanContext {
	if sc, ok := tc.current.Get(); ok {
		return sc
	}
	return tc.incoming.SpanContext()
}

// StartLocalSpan does not create a native span.
func (tc *ThreadContext) StartLocalSpan(MessageSupplier, TimerName) Span {
	return NopSpan
}

// StartTimer does not measure anything.
func (tc *ThreadContext) StartTimer(TimerName) Timer {
	return NopTimer
}

// StartQuerySpan starts a child span named by the query text and keeps it in
// scope until it ends.
func (tc *ThreadContext) StartQuerySpan(queryType, queryText string, msg MessageSupplier, timer TimerName) QuerySpan {
	span := tc.agent.tracer.StartScopedSpan(queryText, tc.current)
	span.SetTag(TagQueryType, queryType)
	tc.agent.metrics.SpanStarted(metrics.KindQuery)
	return &querySpan{span: span, msg: msg}
}

// StartQuerySpanWithCount is StartQuerySpan for a query executed
// executionCount times in a batch.
func (tc *ThreadContext) StartQuerySpanWithCount(queryType, queryText string, executionCount int64,
	msg MessageSupplier, timer TimerName) QuerySpan {
	qs := tc.StartQuerySpan(queryType, queryText, msg, timer).(*querySpan)
	qs.span.SetTag(TagQueryExecutions, executionCount)
	return qs
}

// StartAsyncQuerySpan starts a child span that is not put in scope. It may be
// ended from any goroutine.
func (tc *ThreadContext) StartAsyncQuerySpan(queryType, queryText string, msg MessageSupplier, timer TimerName) AsyncQuerySpan {
	span := tc.agent.tracer.NextSpanIn(queryText, tc.current)
	span.SetTag(TagQueryType, queryType)
	tc.agent.metrics.SpanStarted(metrics.KindAsyncQuery)
	return &asyncQuerySpan{querySpan{span: span, msg: msg}}
}

// CreateAuxThreadContext captures the transaction for continuation on
// another goroutine.
func (tc *ThreadContext) CreateAuxThreadContext() *AuxThreadContext {
	return &AuxThreadContext{agent: tc.agent, incoming: tc.incoming}
}

func (tc *ThreadContext) SetTransactionAsync() {
	tc.incoming.SetAsync()
}

// SetTransactionAsyncComplete signals the async completion of the
// transaction. From an auxiliary context the signal is held back until the
// auxiliary span has ended. Signaling a transaction that was never declared
// async is ignored and emits an EventContractViolation.
func (tc *ThreadContext) SetTransactionAsyncComplete() {
	if tc.auxCompletion == nil || tc.auxCompletion.CompletePart1() {
		tc.agent.asyncComplete(tc.incoming, "SetTransactionAsyncComplete")
	}
}

// SetTransactionType sets the transaction type unless it was set with a
// higher priority.
func (tc *ThreadContext) SetTransactionType(transactionType string, priority int) {
	tc.incoming.setType(transactionType, priority)
}

// SetTransactionName renames the transaction unless it was named with a
// higher priority.
func (tc *ThreadContext) SetTransactionName(transactionName string, priority int) {
	tc.incoming.setName(transactionName, priority)
}

func (tc *ThreadContext) SetTransactionUser(user string, priority int) {
	tc.incoming.SetUser(user)
}

func (tc *ThreadContext) AddTransactionAttribute(name, value string) {
	tc.incoming.span.SetTag(transactionAttribute+name, value)
}

func (tc *ThreadContext) SetTransactionError(err error) {
	tc.incoming.SetError(err)
}

func (tc *ThreadContext) RequestInfo() *RequestInfo {
	return tc.incoming.RequestInfo()
}

func (tc *ThreadContext) SetRequestInfo(info *RequestInfo) {
	tc.incoming.SetRequestInfo(info)
}

func (tc *ThreadContext) CurrentNestingGroupID() int {
	return tc.nestingGroupID
}

func (tc *ThreadContext) SetCurrentNestingGroupID(id int) {
	tc.nestingGroupID = id
}

func (tc *ThreadContext) CurrentSuppressionKeyID() int {
	return tc.suppressionKeyID
}

func (tc *ThreadContext) SetCurrentSuppressionKeyID(id int) {
	tc.suppressionKeyID = id
}

// StartOutgoingSpan starts a child span for a call leaving the process,
// keeps it in scope until it ends, and injects its context into carrier.
func StartOutgoingSpan[C any](tc *ThreadContext, outgoingType, text string, setter propagation.Setter[C], carrier C,
	msg MessageSupplier, timer TimerName) Span {
	span := tc.agent.tracer.StartScopedSpan(text, tc.current)
	span.SetTag(TagOutgoingType, outgoingType)
	ext.SpanKind.Set(span, ext.SpanKindRPCClientEnum)
	propagation.Inject(span.SpanContext(), carrier, setter)
	tc.agent.metrics.SpanStarted(metrics.KindOutgoing)
	return &outgoingSpan{span: span, msg: msg}
}

// StartAsyncOutgoingSpan is StartOutgoingSpan for a call completing on
// another goroutine. The span is not put in scope.
func StartAsyncOutgoingSpan[C any](tc *ThreadContext, outgoingType, text string, setter propagation.Setter[C], carrier C,
	msg MessageSupplier, timer TimerName) AsyncSpan {
	span := tc.agent.tracer.NextSpanIn(text, tc.current)
	span.SetTag(TagOutgoingType, outgoingType)
	ext.SpanKind.Set(span, ext.SpanKindRPCClientEnum)
	propagation.Inject(span.SpanContext(), carrier, setter)
	tc.agent.metrics.SpanStarted(metrics.KindAsyncOutgoing)
	return &asyncOutgoingSpan{outgoingSpan{span: span, msg: msg}}
}

func (a *Agent) asyncComplete(incoming *IncomingSpan, operation string) {
	if err := incoming.SetAsyncComplete(); err != nil {
		a.emit(events.NewEventContractViolation(operation, err))
	}
}
