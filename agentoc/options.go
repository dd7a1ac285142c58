package agentoc

import (
	"go.opencensus.io/trace"
)

// ServiceNameAttribute is the attribute holding the local service name of a
// converted span.
const ServiceNameAttribute = "service.name"

// Option provides configuration for the Reporter
type Option func(*config)

// WithExporter adds an exporter that receives every reported span
func WithExporter(exporter trace.Exporter) Option {
	return func(c *config) {
		if exporter != nil {
			c.exporters = append(c.exporters, exporter)
		}
	}
}

// WithBaggageAsTracestate copies baggage items into the span's tracestate.
// Items whose keys or values are not valid tracestate entries are skipped.
func WithBaggageAsTracestate(enabled bool) Option {
	return func(c *config) {
		c.baggageAsTracestate = enabled
	}
}

type config struct {
	exporters           []trace.Exporter
	baggageAsTracestate bool
}

func defaultConfig() *config {
	return &config{}
}
