package agentoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go/ext"
	otlog "github.com/opentracing/opentracing-go/log"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/trace"
	"go.opencensus.io/trace/tracestate"

	"github.com/trask/brave-agent/agentoc/internal/conversions"
	"github.com/trask/brave-agent/tracer"
)

var (
	// ErrNoExporters indicates that a Reporter was built without exporters.
	ErrNoExporters = errors.New("agentoc: no exporters configured")
)

// Reporter is a tracer.Reporter that converts spans to OpenCensus span data.
type Reporter struct {
	cfg *config
}

var _ tracer.Reporter = (*Reporter)(nil)

func NewReporter(opts ...Option) *Reporter {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return &Reporter{cfg: c}
}

// Report exports every span to every exporter, stopping early if ctx is done.
func (r *Reporter) Report(ctx context.Context, spans []tracer.RawSpan) error {
	if len(r.cfg.exporters) == 0 {
		return ErrNoExporters
	}
	for _, raw := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		sd := r.spanData(raw)
		for _, exporter := range r.cfg.exporters {
			exporter.ExportSpan(sd)
		}
	}
	return nil
}

// SpanData converts a finished span with the default configuration.
func SpanData(raw tracer.RawSpan) *trace.SpanData {
	return (&Reporter{cfg: defaultConfig()}).spanData(raw)
}

func (r *Reporter) spanData(raw tracer.RawSpan) *trace.SpanData {
	sc := raw.Context
	sd := &trace.SpanData{
		SpanContext: trace.SpanContext{
			TraceID:      conversions.ConvertTraceID(sc.TraceIDHigh, sc.TraceID),
			SpanID:       conversions.ConvertSpanID(sc.SpanID),
			TraceOptions: conversions.ConvertTraceOptions(sc),
		},
		ParentSpanID:    conversions.ConvertSpanID(sc.ParentID),
		Name:            raw.Operation,
		StartTime:       raw.Start,
		EndTime:         raw.Finish(),
		HasRemoteParent: raw.Shared,
		Attributes:      make(map[string]interface{}, len(raw.Tags)+1),
	}
	if r.cfg.baggageAsTracestate {
		sd.SpanContext.Tracestate = toTracestate(sc.Baggage)
	}
	if raw.LocalServiceName != "" {
		sd.Attributes[ServiceNameAttribute] = raw.LocalServiceName
	}

	for k, v := range raw.Tags {
		switch k {
		case string(ext.SpanKind):
			sd.SpanKind = toSpanKind(v)
			continue
		case string(ext.HTTPStatusCode):
			if code, ok := conversions.ConvertAttribute(v); ok {
				if c, ok := code.(int64); ok {
					sd.Status = ochttp.TraceStatus(int(c), "")
				}
			}
		}
		if attr, ok := conversions.ConvertAttribute(v); ok {
			sd.Attributes[k] = attr
		} else {
			sd.Attributes[k] = fmt.Sprint(v)
		}
	}

	if err := raw.Err(); err != nil {
		sd.Status = trace.Status{Code: trace.StatusCodeUnknown, Message: err.Error()}
	} else if failed, _ := raw.Tags[string(ext.Error)].(bool); failed && sd.Status.Code == trace.StatusCodeOK {
		sd.Status = trace.Status{Code: trace.StatusCodeUnknown}
	}

	for _, rec := range raw.Logs {
		enc := annotationEncoder{attributes: make(map[string]interface{}, len(rec.Fields))}
		for _, f := range rec.Fields {
			f.Marshal(&enc)
		}
		sd.Annotations = append(sd.Annotations, trace.Annotation{
			Time:       rec.Timestamp,
			Message:    enc.message(),
			Attributes: enc.attributes,
		})
	}
	return sd
}

func toSpanKind(v interface{}) int {
	var kind string
	switch t := v.(type) {
	case ext.SpanKindEnum:
		kind = string(t)
	case string:
		kind = t
	}
	switch ext.SpanKindEnum(kind) {
	case ext.SpanKindRPCServerEnum:
		return trace.SpanKindServer
	case ext.SpanKindRPCClientEnum:
		return trace.SpanKindClient
	}
	return trace.SpanKindUnspecified
}

func toTracestate(baggage map[string]string) *tracestate.Tracestate {
	entries := make([]tracestate.Entry, 0, len(baggage))
	for k, v := range baggage {
		entry := tracestate.Entry{Key: k, Value: v}
		if _, err := tracestate.New(nil, entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil
	}
	ts, err := tracestate.New(nil, entries...)
	if err != nil {
		return nil
	}
	return ts
}

// annotationEncoder collects log fields as annotation attributes. The "event"
// field, when present, becomes the annotation message.
type annotationEncoder struct {
	attributes map[string]interface{}
}

var _ otlog.Encoder = (*annotationEncoder)(nil)

func (e *annotationEncoder) message() string {
	if event, ok := e.attributes["event"].(string); ok {
		delete(e.attributes, "event")
		return event
	}
	return "log"
}

func (e *annotationEncoder) EmitString(key, value string) {
	e.attributes[key] = value
}
func (e *annotationEncoder) EmitBool(key string, value bool) {
	e.attributes[key] = value
}
func (e *annotationEncoder) EmitInt(key string, value int) {
	e.attributes[key] = int64(value)
}
func (e *annotationEncoder) EmitInt32(key string, value int32) {
	e.attributes[key] = int64(value)
}
func (e *annotationEncoder) EmitInt64(key string, value int64) {
	e.attributes[key] = value
}
func (e *annotationEncoder) EmitUint32(key string, value uint32) {
	e.attributes[key] = int64(value)
}
func (e *annotationEncoder) EmitUint64(key string, value uint64) {
	e.attributes[key] = fmt.Sprint(value)
}
func (e *annotationEncoder) EmitFloat32(key string, value float32) {
	e.attributes[key] = float64(value)
}
func (e *annotationEncoder) EmitFloat64(key string, value float64) {
	e.attributes[key] = value
}
func (e *annotationEncoder) EmitObject(key string, value interface{}) {
	if err, ok := value.(error); ok {
		e.attributes[key] = err.Error()
		return
	}
	e.attributes[key] = fmt.Sprint(value)
}
func (e *annotationEncoder) EmitLazyLogger(value otlog.LazyLogger) {
	value(e)
}
