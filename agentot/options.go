package agentot

import (
	"github.com/trask/brave-agent/events"
)

// Tags carrying the ids the agent allocated, set when WithOriginalIDs is on.
const (
	OriginalTraceIDKey = "b3.trace_id"
	OriginalSpanIDKey  = "b3.span_id"
)

// Option provides configuration for the Reporter
type Option func(*config)

// WithOriginalIDs tags every replayed span with the trace and span ids the
// agent allocated.
func WithOriginalIDs(enabled bool) Option {
	return func(c *config) {
		c.originalIDs = enabled
	}
}

// WithEventHandler receives the events emitted while replaying.
func WithEventHandler(handler events.Handler) Option {
	return func(c *config) {
		c.onEvent = handler
	}
}

type config struct {
	originalIDs bool
	onEvent     events.Handler
}

func defaultConfig() *config {
	return &config{}
}
