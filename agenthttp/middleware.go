// Package agenthttp starts transactions for served HTTP requests and
// outgoing spans for client requests, propagating B3 headers.
package agenthttp

import (
	"fmt"
	"net/http"
	"strconv"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/propagation"
)

// StatusCodeAttribute is the transaction attribute holding the response
// status code.
const StatusCodeAttribute = "http.status_code"

// Middleware runs each request inside a transaction. Handlers find the active
// ThreadContext with agent.ThreadContextFromContext(r.Context()). Responses
// with a 5xx status end the transaction with an error.
func Middleware(a *agent.Agent, opts ...Option) func(http.Handler) http.Handler {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			holder := agent.HolderFromContext(ctx)
			if holder == nil {
				holder = agent.NewHolder()
				ctx = agent.NewContext(ctx, holder)
			}
			name := c.name(r)
			span := agent.StartIncomingSpan(a, c.transactionType, name, propagation.HTTPHeaders, r.Header,
				agent.Message(name), c.timer, holder, 0, 0)
			incoming, ok := span.(*agent.IncomingSpan)
			if ok {
				incoming.SetRequestInfo(&agent.RequestInfo{
					Method:     r.Method,
					URI:        r.URL.RequestURI(),
					RemoteAddr: r.RemoteAddr,
				})
			}

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			tc := holder.Get()
			defer func() {
				if ok {
					tc.AddTransactionAttribute(StatusCodeAttribute, strconv.Itoa(rw.status))
				}
				if rw.status >= http.StatusInternalServerError {
					span.EndWithError(fmt.Errorf("%d %s", rw.status, http.StatusText(rw.status)))
					return
				}
				span.End()
			}()
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
