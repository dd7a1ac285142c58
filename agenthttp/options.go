package agenthttp

import (
	"net/http"

	agent "github.com/trask/brave-agent"
)

const (
	DefaultTransactionType = "Web"
	DefaultOutgoingType    = "HTTP"
)

// Option provides configuration for Middleware and Transport
type Option func(*config)

// WithTransactionType sets the transaction type of served requests
func WithTransactionType(transactionType string) Option {
	return func(c *config) {
		c.transactionType = transactionType
	}
}

// WithOutgoingType sets the outgoing type of client requests
func WithOutgoingType(outgoingType string) Option {
	return func(c *config) {
		c.outgoingType = outgoingType
	}
}

// WithNameFunc names transactions and outgoing spans. The default is the
// method followed by the path.
func WithNameFunc(f func(*http.Request) string) Option {
	return func(c *config) {
		if f != nil {
			c.name = f
		}
	}
}

func WithTimerName(timer agent.TimerName) Option {
	return func(c *config) {
		c.timer = timer
	}
}

type config struct {
	transactionType string
	outgoingType    string
	name            func(*http.Request) string
	timer           agent.TimerName
}

func defaultConfig() *config {
	return &config{
		transactionType: DefaultTransactionType,
		outgoingType:    DefaultOutgoingType,
		name: func(r *http.Request) string {
			return r.Method + " " + r.URL.Path
		},
		timer: "http request",
	}
}
