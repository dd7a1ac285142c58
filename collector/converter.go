package collector

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gogo/protobuf/types"
	"github.com/lightstep/lightstep-tracer-common/golang/gogo/collectorpb"
	opentracing "github.com/opentracing/opentracing-go"
	otlog "github.com/opentracing/opentracing-go/log"

	"github.com/trask/brave-agent/tracer"
)

// TraceIDHighKey carries the upper half of a 128-bit trace id, which the
// collector protocol has no field for.
const TraceIDHighKey = "b3.trace_id_high"

func (c *config) toReportRequest(spans []tracer.RawSpan) *collectorpb.ReportRequest {
	req := &collectorpb.ReportRequest{
		Reporter: &collectorpb.Reporter{
			ReporterId: c.reporterID,
			Tags:       toStringFields(c.tags),
		},
		Auth:  &collectorpb.Auth{AccessToken: c.accessToken},
		Spans: make([]*collectorpb.Span, 0, len(spans)),
	}
	for _, raw := range spans {
		req.Spans = append(req.Spans, toSpan(raw))
	}
	return req
}

func toSpan(raw tracer.RawSpan) *collectorpb.Span {
	span := &collectorpb.Span{
		SpanContext: &collectorpb.SpanContext{
			TraceId: raw.Context.TraceID,
			SpanId:  raw.Context.SpanID,
			Baggage: raw.Context.Baggage,
		},
		OperationName:  raw.Operation,
		StartTimestamp: toTimestamp(raw.Start),
		DurationMicros: uint64(raw.Duration.Nanoseconds() / 1000),
		Tags:           toTagFields(raw.Tags),
	}
	if raw.Context.ParentID != 0 {
		span.References = []*collectorpb.Reference{{
			Relationship: collectorpb.Reference_CHILD_OF,
			SpanContext: &collectorpb.SpanContext{
				TraceId: raw.Context.TraceID,
				SpanId:  raw.Context.ParentID,
			},
		}}
	}
	if raw.Context.TraceIDHigh != 0 {
		span.Tags = append(span.Tags, stringField(TraceIDHighKey, fmt.Sprintf("%016x", raw.Context.TraceIDHigh)))
	}
	if raw.LocalServiceName != "" {
		span.Tags = append(span.Tags, stringField(ComponentNameKey, raw.LocalServiceName))
	}
	for _, lr := range raw.Logs {
		span.Logs = append(span.Logs, toLog(lr))
	}
	return span
}

func toLog(lr opentracing.LogRecord) *collectorpb.Log {
	log := &collectorpb.Log{Timestamp: toTimestamp(lr.Timestamp)}
	enc := &logFieldEncoder{}
	for _, f := range lr.Fields {
		f.Marshal(enc)
	}
	log.Fields = enc.fields
	return log
}

func toTimestamp(t time.Time) *types.Timestamp {
	ts, err := types.TimestampProto(t)
	if err != nil {
		return &types.Timestamp{}
	}
	return ts
}

func stringField(key, value string) *collectorpb.KeyValue {
	return &collectorpb.KeyValue{Key: key, Value: &collectorpb.KeyValue_StringValue{StringValue: value}}
}

func toStringFields(m map[string]string) []*collectorpb.KeyValue {
	fields := make([]*collectorpb.KeyValue, 0, len(m))
	for k, v := range m {
		fields = append(fields, stringField(k, v))
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return fields
}

func toTagFields(tags opentracing.Tags) []*collectorpb.KeyValue {
	enc := &logFieldEncoder{}
	for k, v := range tags {
		enc.emitValue(k, v)
	}
	sort.Slice(enc.fields, func(i, j int) bool { return enc.fields[i].Key < enc.fields[j].Key })
	return enc.fields
}

// logFieldEncoder implements otlog.Encoder. Unsigned integers are encoded as
// strings since the collector only carries signed integers.
type logFieldEncoder struct {
	fields []*collectorpb.KeyValue
}

var _ otlog.Encoder = (*logFieldEncoder)(nil)

func (e *logFieldEncoder) emit(key string, value collectorpb.KeyValue) {
	value.Key = key
	e.fields = append(e.fields, &value)
}

func (e *logFieldEncoder) EmitString(key, value string) {
	e.emit(key, collectorpb.KeyValue{Value: &collectorpb.KeyValue_StringValue{StringValue: value}})
}

func (e *logFieldEncoder) EmitBool(key string, value bool) {
	e.emit(key, collectorpb.KeyValue{Value: &collectorpb.KeyValue_BoolValue{BoolValue: value}})
}

func (e *logFieldEncoder) EmitInt(key string, value int) {
	e.EmitInt64(key, int64(value))
}

func (e *logFieldEncoder) EmitInt32(key string, value int32) {
	e.EmitInt64(key, int64(value))
}

func (e *logFieldEncoder) EmitInt64(key string, value int64) {
	e.emit(key, collectorpb.KeyValue{Value: &collectorpb.KeyValue_IntValue{IntValue: value}})
}

func (e *logFieldEncoder) EmitUint32(key string, value uint32) {
	e.EmitString(key, fmt.Sprint(value))
}

func (e *logFieldEncoder) EmitUint64(key string, value uint64) {
	e.EmitString(key, fmt.Sprint(value))
}

func (e *logFieldEncoder) EmitFloat32(key string, value float32) {
	e.EmitFloat64(key, float64(value))
}

func (e *logFieldEncoder) EmitFloat64(key string, value float64) {
	e.emit(key, collectorpb.KeyValue{Value: &collectorpb.KeyValue_DoubleValue{DoubleValue: value}})
}

func (e *logFieldEncoder) EmitObject(key string, value interface{}) {
	b, err := json.Marshal(value)
	if err != nil {
		e.EmitString(key, fmt.Sprintf("%#v", value))
		return
	}
	e.emit(key, collectorpb.KeyValue{Value: &collectorpb.KeyValue_JsonValue{JsonValue: string(b)}})
}

func (e *logFieldEncoder) EmitLazyLogger(value otlog.LazyLogger) {
	value(e)
}

func (e *logFieldEncoder) emitValue(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		e.EmitString(key, v)
	case bool:
		e.EmitBool(key, v)
	case int:
		e.EmitInt(key, v)
	case int32:
		e.EmitInt32(key, v)
	case int64:
		e.EmitInt64(key, v)
	case uint32:
		e.EmitUint32(key, v)
	case uint64:
		e.EmitUint64(key, v)
	case float32:
		e.EmitFloat32(key, v)
	case float64:
		e.EmitFloat64(key, v)
	case error:
		e.EmitString(key, v.Error())
	case fmt.Stringer:
		e.EmitString(key, v.String())
	default:
		e.EmitObject(key, v)
	}
}
