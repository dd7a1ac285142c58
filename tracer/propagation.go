package tracer

import (
	"strings"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/trask/brave-agent/propagation"
)

const baggagePrefix = "ot-baggage-"

var textMapWriter = propagation.SetterFunc[opentracing.TextMapWriter](
	func(w opentracing.TextMapWriter, key, value string) {
		w.Set(key, value)
	},
)

// Inject writes sc as B3 headers plus ot-baggage- prefixed baggage. The
// TextMap and HTTPHeaders formats are supported.
func (t *Tracer) Inject(sc opentracing.SpanContext, format interface{}, carrier interface{}) error {
	switch format {
	case opentracing.TextMap, opentracing.HTTPHeaders:
	default:
		return opentracing.ErrUnsupportedFormat
	}
	w, ok := carrier.(opentracing.TextMapWriter)
	if !ok {
		return opentracing.ErrInvalidCarrier
	}
	ctx, ok := sc.(propagation.SpanContext)
	if !ok {
		return opentracing.ErrInvalidSpanContext
	}

	propagation.Inject(ctx, w, textMapWriter)
	for k, v := range ctx.Baggage {
		w.Set(baggagePrefix+k, v)
	}
	return nil
}

// Extract reads a context written by Inject, or by any B3 propagator.
func (t *Tracer) Extract(format interface{}, carrier interface{}) (opentracing.SpanContext, error) {
	switch format {
	case opentracing.TextMap, opentracing.HTTPHeaders:
	default:
		return nil, opentracing.ErrUnsupportedFormat
	}
	r, ok := carrier.(opentracing.TextMapReader)
	if !ok {
		return nil, opentracing.ErrInvalidCarrier
	}

	fields := map[string]string{}
	var baggage map[string]string
	err := r.ForeachKey(func(key, value string) error {
		key = strings.ToLower(key)
		if strings.HasPrefix(key, baggagePrefix) {
			if baggage == nil {
				baggage = map[string]string{}
			}
			baggage[strings.TrimPrefix(key, baggagePrefix)] = value
			return nil
		}
		fields[key] = value
		return nil
	})
	if err != nil {
		return nil, err
	}

	extracted := propagation.Extract(fields, propagation.TextMap)
	if !extracted.HasContext() {
		if extracted.Err != nil {
			return nil, extracted.Err
		}
		return nil, opentracing.ErrSpanContextNotFound
	}
	extracted.Context.Baggage = baggage
	return extracted.Context, nil
}
