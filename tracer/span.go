package tracer

import (
	"sync"
	"sync/atomic"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"

	"github.com/trask/brave-agent/propagation"
)

// Span is a span of the native tracer. It is safe for concurrent use, though
// the agent only ever touches a span from one goroutine at a time.
type Span struct {
	tracer *Tracer
	scope  *Scope

	finished int32

	mu  sync.Mutex
	raw RawSpan
}

var _ opentracing.Span = (*Span)(nil)

func (s *Span) SpanContext() propagation.SpanContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw.Context
}

// IsNoop reports whether the span is unsampled and will never be recorded.
func (s *Span) IsNoop() bool {
	return !s.SpanContext().Sampled()
}

// Error tags the span as failed and logs err. Nil errors are ignored.
func (s *Span) Error(err error) *Span {
	if err == nil {
		return s
	}
	ext.Error.Set(s, true)
	s.LogFields(otlog.Error(err))
	return s
}

// Finished reports whether Finish was called.
func (s *Span) Finished() bool {
	return atomic.LoadInt32(&s.finished) == 1
}

func (s *Span) Finish() {
	s.FinishWithOptions(opentracing.FinishOptions{})
}

// FinishWithOptions records the span once. Later calls are ignored.
func (s *Span) FinishWithOptions(opts opentracing.FinishOptions) {
	if !atomic.CompareAndSwapInt32(&s.finished, 0, 1) {
		return
	}
	finishTime := opts.FinishTime
	if finishTime.IsZero() {
		finishTime = s.tracer.cfg.clock.Now()
	}

	s.mu.Lock()
	s.raw.Duration = finishTime.Sub(s.raw.Start)
	for _, lr := range opts.LogRecords {
		s.raw.Logs = append(s.raw.Logs, lr)
	}
	for _, ld := range opts.BulkLogData {
		s.raw.Logs = append(s.raw.Logs, ld.ToLogRecord())
	}
	raw := s.raw
	s.mu.Unlock()

	s.scope.Close()
	if raw.Context.Sampled() {
		s.tracer.cfg.recorder.RecordSpan(raw)
	}
}

func (s *Span) Context() opentracing.SpanContext {
	return s.SpanContext()
}

func (s *Span) SetOperationName(operationName string) opentracing.Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Operation = operationName
	return s
}

func (s *Span) SetTag(key string, value interface{}) opentracing.Span {
	if s.Finished() {
		return s
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw.Tags == nil {
		s.raw.Tags = opentracing.Tags{}
	}
	s.raw.Tags[key] = value
	return s
}

// Tag returns the value of a tag set on the span.
func (s *Span) Tag(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.raw.Tags[key]
	return v, ok
}

func (s *Span) LogFields(fields ...otlog.Field) {
	if s.Finished() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Logs = append(s.raw.Logs, opentracing.LogRecord{
		Timestamp: s.tracer.cfg.clock.Now(),
		Fields:    fields,
	})
}

func (s *Span) LogKV(alternatingKeyValues ...interface{}) {
	fields, err := otlog.InterleavedKVToFields(alternatingKeyValues...)
	if err != nil {
		s.LogFields(otlog.Error(err), otlog.String("function", "LogKV"))
		return
	}
	s.LogFields(fields...)
}

func (s *Span) SetBaggageItem(key, value string) opentracing.Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Context = s.raw.Context.WithBaggageItem(key, value)
	return s
}

func (s *Span) BaggageItem(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw.Context.Baggage[key]
}

func (s *Span) Tracer() opentracing.Tracer {
	return s.tracer
}

func (s *Span) LogEvent(event string) {
	s.Log(opentracing.LogData{Event: event})
}

func (s *Span) LogEventWithPayload(event string, payload interface{}) {
	s.Log(opentracing.LogData{Event: event, Payload: payload})
}

func (s *Span) Log(ld opentracing.LogData) {
	if s.Finished() {
		return
	}
	if ld.Timestamp.IsZero() {
		ld.Timestamp = s.tracer.cfg.clock.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Logs = append(s.raw.Logs, ld.ToLogRecord())
}

