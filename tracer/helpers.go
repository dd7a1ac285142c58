package tracer

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/trask/brave-agent/events"
)

// Flush forces a synchronous flush of tracer, which may be any
// opentracing.Tracer. Foreign tracers emit and return an
// EventUnsupportedTracer.
func Flush(ctx context.Context, tracer opentracing.Tracer) error {
	t, ok := tracer.(*Tracer)
	if !ok {
		return unsupported(tracer)
	}
	return t.Flush(ctx)
}

// Close synchronously flushes the tracer, then terminates it.
func Close(ctx context.Context, tracer opentracing.Tracer) error {
	t, ok := tracer.(*Tracer)
	if !ok {
		return unsupported(tracer)
	}
	return t.Close(ctx)
}

func unsupported(tracer opentracing.Tracer) error {
	event := events.NewEventUnsupportedTracer(tracer)
	events.Emit(event)
	return event
}
