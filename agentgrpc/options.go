package agentgrpc

import (
	agent "github.com/trask/brave-agent"
)

const (
	DefaultTransactionType = "gRPC"
	DefaultOutgoingType    = "gRPC"
)

// Option provides configuration for the interceptors
type Option func(*config)

// WithTransactionType sets the transaction type of server calls
func WithTransactionType(transactionType string) Option {
	return func(c *config) {
		c.transactionType = transactionType
	}
}

// WithOutgoingType sets the outgoing type of client calls
func WithOutgoingType(outgoingType string) Option {
	return func(c *config) {
		c.outgoingType = outgoingType
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
	timer           agent.TimerName
}

func defaultConfig() *config {
	return &config{
		transactionType: DefaultTransactionType,
		outgoingType:    DefaultOutgoingType,
		timer:           "grpc call",
	}
}
