package agenthttp

import (
	"fmt"
	"net/http"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/propagation"
)

// Transport wraps requests made inside a transaction in an outgoing span and
// injects its context into the request headers. The span is not put in
// scope, so concurrent requests sharing one request context stay siblings.
// Requests outside a transaction pass through to Base.
type Transport struct {
	// Base is the underlying RoundTripper; nil means http.DefaultTransport.
	Base http.RoundTripper

	cfg *config
}

func NewTransport(base http.RoundTripper, opts ...Option) *Transport {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return &Transport{Base: base, cfg: c}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	cfg := t.cfg
	if cfg == nil {
		cfg = defaultConfig()
	}

	tc := agent.ThreadContextFromContext(req.Context())
	if tc == nil {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	name := cfg.name(req)
	span := agent.StartAsyncOutgoingSpan(tc, cfg.outgoingType, name, propagation.HTTPHeaders, out.Header,
		agent.Message(name), cfg.timer)

	resp, err := base.RoundTrip(out)
	switch {
	case err != nil:
		span.EndWithError(err)
	case resp.StatusCode >= http.StatusInternalServerError:
		span.EndWithError(fmt.Errorf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	default:
		span.End()
	}
	return resp, err
}
