package propagation

import (
	"fmt"
	"strconv"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
)

const (
	b3Prefix            = "x-b3-"
	b3FieldNameTraceID  = b3Prefix + "traceid"
	b3FieldNameSpanID   = b3Prefix + "spanid"
	b3FieldNameParentID = b3Prefix + "parentspanid"
	b3FieldNameSampled  = b3Prefix + "sampled"
	b3FieldNameFlags    = b3Prefix + "flags"
	b3SingleHeader      = "b3"
)

// Fields lists every carrier key the codec may write, in lower case.
var Fields = []string{
	b3FieldNameTraceID,
	b3FieldNameSpanID,
	b3FieldNameParentID,
	b3FieldNameSampled,
	b3FieldNameFlags,
	b3SingleHeader,
}

// Extract reads a B3 trace context from the carrier. The multi-header form is
// preferred; the single "b3" header is consulted when it is the only one
// present. Missing or malformed fields never fail: the result degrades to the
// sampling flags alone, with Err describing what was discarded.
func Extract[C any](carrier C, getter Getter[C]) Extracted {
	get := func(key string) string {
		return strings.TrimSpace(getter.Get(carrier, key))
	}
	if get(b3FieldNameTraceID) == "" && get(b3FieldNameSampled) == "" && get(b3FieldNameFlags) == "" {
		if single := get(b3SingleHeader); single != "" {
			return extractSingle(single)
		}
	}
	return extractMulti(get)
}

// Inject writes the context into the carrier using the B3 multi-header form.
func Inject[C any](sc SpanContext, carrier C, setter Setter[C]) {
	setter.Set(carrier, b3FieldNameTraceID, sc.TraceIDString())
	setter.Set(carrier, b3FieldNameSpanID, sc.SpanIDString())
	if sc.ParentID != 0 {
		setter.Set(carrier, b3FieldNameParentID, fmt.Sprintf("%016x", sc.ParentID))
	}
	switch sc.Sampling {
	case SamplingDebug:
		setter.Set(carrier, b3FieldNameFlags, "1")
	case SamplingAccept:
		setter.Set(carrier, b3FieldNameSampled, "1")
	case SamplingReject:
		setter.Set(carrier, b3FieldNameSampled, "0")
	}
}

// InjectSingle writes the context into the carrier as a single "b3" header.
func InjectSingle[C any](sc SpanContext, carrier C, setter Setter[C]) {
	var sb strings.Builder
	sb.WriteString(sc.TraceIDString())
	sb.WriteByte('-')
	sb.WriteString(sc.SpanIDString())
	switch sc.Sampling {
	case SamplingDebug:
		sb.WriteString("-d")
	case SamplingAccept:
		sb.WriteString("-1")
	case SamplingReject:
		sb.WriteString("-0")
	}
	// the parent id is positional and cannot follow an unset sampling state
	if sc.ParentID != 0 && sc.Sampling != SamplingUnset {
		sb.WriteString(fmt.Sprintf("-%016x", sc.ParentID))
	}
	setter.Set(carrier, b3SingleHeader, sb.String())
}

func extractMulti(get func(string) string) Extracted {
	var out Extracted
	if get(b3FieldNameFlags) == "1" {
		out.Sampling = SamplingDebug
	} else if v := get(b3FieldNameSampled); v != "" {
		sampling, err := parseSampled(v)
		if err != nil {
			out.Err = err
		}
		out.Sampling = sampling
	}

	traceID := get(b3FieldNameTraceID)
	if traceID == "" {
		return out
	}
	high, low, err := parseTraceID(traceID)
	if err != nil {
		return discard(out, err)
	}
	spanID, err := parseID(b3FieldNameSpanID, get(b3FieldNameSpanID))
	if err != nil {
		return discard(out, err)
	}
	var parentID uint64
	if v := get(b3FieldNameParentID); v != "" {
		if parentID, err = parseID(b3FieldNameParentID, v); err != nil {
			return discard(out, err)
		}
	}

	out.Context = SpanContext{
		TraceIDHigh: high,
		TraceID:     low,
		ParentID:    parentID,
		SpanID:      spanID,
		Sampling:    out.Sampling,
	}
	return out
}

// extractSingle parses {traceid}-{spanid}[-{sampling}[-{parentspanid}]], or a
// lone sampling state.
func extractSingle(v string) Extracted {
	parts := strings.Split(v, "-")
	if len(parts) == 1 {
		sampling, err := parseSingleSampling(parts[0])
		return Extracted{Sampling: sampling, Err: err}
	}
	if len(parts) > 4 {
		return discard(Extracted{}, corrupted(b3SingleHeader, v))
	}

	var out Extracted
	if len(parts) >= 3 {
		sampling, err := parseSingleSampling(parts[2])
		if err != nil {
			return discard(out, err)
		}
		out.Sampling = sampling
	}
	high, low, err := parseTraceID(parts[0])
	if err != nil {
		return discard(out, err)
	}
	spanID, err := parseID(b3FieldNameSpanID, parts[1])
	if err != nil {
		return discard(out, err)
	}
	var parentID uint64
	if len(parts) == 4 {
		if parentID, err = parseID(b3FieldNameParentID, parts[3]); err != nil {
			return discard(out, err)
		}
	}
	out.Context = SpanContext{
		TraceIDHigh: high,
		TraceID:     low,
		ParentID:    parentID,
		SpanID:      spanID,
		Sampling:    out.Sampling,
	}
	return out
}

func discard(out Extracted, err error) Extracted {
	out.Context = SpanContext{}
	out.Err = err
	return out
}

func parseTraceID(v string) (uint64, uint64, error) {
	switch n := len(v); {
	case n == 0 || n > 32:
		return 0, 0, corrupted(b3FieldNameTraceID, v)
	case n > 16:
		high, err := strconv.ParseUint(v[:n-16], 16, 64)
		if err != nil {
			return 0, 0, corrupted(b3FieldNameTraceID, v)
		}
		low, err := strconv.ParseUint(v[n-16:], 16, 64)
		if err != nil || (high == 0 && low == 0) {
			return 0, 0, corrupted(b3FieldNameTraceID, v)
		}
		return high, low, nil
	}
	low, err := strconv.ParseUint(v, 16, 64)
	if err != nil || low == 0 {
		return 0, 0, corrupted(b3FieldNameTraceID, v)
	}
	return 0, low, nil
}

func parseID(field, v string) (uint64, error) {
	if len(v) == 0 || len(v) > 16 {
		return 0, corrupted(field, v)
	}
	id, err := strconv.ParseUint(v, 16, 64)
	if err != nil || id == 0 {
		return 0, corrupted(field, v)
	}
	return id, nil
}

func parseSampled(v string) (Sampling, error) {
	switch strings.ToLower(v) {
	case "1", "true", "d":
		return SamplingAccept, nil
	case "0", "false":
		return SamplingReject, nil
	}
	return SamplingUnset, corrupted(b3FieldNameSampled, v)
}

func parseSingleSampling(v string) (Sampling, error) {
	switch v {
	case "1":
		return SamplingAccept, nil
	case "0":
		return SamplingReject, nil
	case "d":
		return SamplingDebug, nil
	}
	return SamplingUnset, corrupted(b3SingleHeader, v)
}

func corrupted(field, value string) error {
	return fmt.Errorf("%w: %s=%q", opentracing.ErrSpanContextCorrupted, field, value)
}
