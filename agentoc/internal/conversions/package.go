package conversions

import (
	"encoding/binary"

	"go.opencensus.io/trace"

	"github.com/trask/brave-agent/propagation"
)

func ConvertTraceID(high, low uint64) trace.TraceID {
	var traceID trace.TraceID
	binary.BigEndian.PutUint64(traceID[0:8], high)
	binary.BigEndian.PutUint64(traceID[8:], low)
	return traceID
}

func ConvertSpanID(id uint64) trace.SpanID {
	var spanID trace.SpanID
	if id == 0 {
		return spanID
	}
	binary.BigEndian.PutUint64(spanID[:], id)
	return spanID
}

func ConvertTraceOptions(sc propagation.SpanContext) trace.TraceOptions {
	if sc.Sampled() {
		return trace.TraceOptions(1)
	}
	return trace.TraceOptions(0)
}

// ConvertAttribute narrows v to one of the attribute types OpenCensus
// exporters understand. The second result is false for anything else.
func ConvertAttribute(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case bool, string, int64, float64:
		return t, true
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case float32:
		return float64(t), true
	}
	return nil, false
}
