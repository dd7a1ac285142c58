package agent

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/metrics"
)

// Option configures an Agent.
type Option func(*config)

type config struct {
	onEvent    events.Handler
	registerer prometheus.Registerer
	namespace  string
}

func defaultConfig() *config {
	return &config{
		namespace: metrics.DefaultNamespace,
	}
}

// WithEventHandler sets the handler for events of this agent, instead of the
// global handler.
func WithEventHandler(handler events.Handler) Option {
	return func(c *config) {
		c.onEvent = handler
	}
}

// WithRegisterer registers the span counters on reg. Without it the counters
// live on a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

func WithMetricsNamespace(namespace string) Option {
	return func(c *config) {
		c.namespace = namespace
	}
}
