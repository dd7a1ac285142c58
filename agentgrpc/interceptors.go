// Package agentgrpc starts transactions for gRPC server calls and outgoing
// spans for gRPC client calls, propagating B3 headers in call metadata.
package agentgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	agent "github.com/trask/brave-agent"
)

// Metadata accesses grpc metadata.MD carriers. Keys are matched lower-case,
// as metadata stores them.
var Metadata metadataAccessor

type metadataAccessor struct{}

func (metadataAccessor) Get(md metadata.MD, key string) string {
	if vs := md.Get(key); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (metadataAccessor) Set(md metadata.MD, key, value string) {
	md.Set(key, value)
}

// UnaryServerInterceptor runs every call inside a transaction named after the
// full method. The handler finds the active ThreadContext with
// agent.ThreadContextFromContext.
func UnaryServerInterceptor(a *agent.Agent, opts ...Option) grpc.UnaryServerInterceptor {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, span := c.startIncoming(ctx, a, info.FullMethod)
		resp, err := handler(ctx, req)
		end(span, err)
		return resp, err
	}
}

// StreamServerInterceptor is UnaryServerInterceptor for streaming calls. The
// transaction ends when the handler returns.
func StreamServerInterceptor(a *agent.Agent, opts ...Option) grpc.StreamServerInterceptor {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, span := c.startIncoming(ss.Context(), a, info.FullMethod)
		err := handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
		end(span, err)
		return err
	}
}

// UnaryClientInterceptor wraps calls made inside a transaction in an outgoing
// span and propagates its context. The span is not put in scope, so
// concurrent calls sharing one context stay siblings. Calls outside a
// transaction pass through.
func UnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		tc := agent.ThreadContextFromContext(ctx)
		if tc == nil {
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}

		md, ok := metadata.FromOutgoingContext(ctx)
		if ok {
			md = md.Copy()
		} else {
			md = metadata.MD{}
		}
		span := agent.StartAsyncOutgoingSpan(tc, c.outgoingType, method, Metadata, md, agent.Message(method), c.timer)
		err := invoker(metadata.NewOutgoingContext(ctx, md), method, req, reply, cc, callOpts...)
		end(span, err)
		return err
	}
}

func (c *config) startIncoming(ctx context.Context, a *agent.Agent, fullMethod string) (context.Context, agent.Span) {
	holder := agent.HolderFromContext(ctx)
	if holder == nil {
		holder = agent.NewHolder()
		ctx = agent.NewContext(ctx, holder)
	}
	md, _ := metadata.FromIncomingContext(ctx)
	span := agent.StartIncomingSpan(a, c.transactionType, fullMethod, Metadata, md,
		agent.Message(fullMethod), c.timer, holder, 0, 0)

	if incoming, ok := span.(*agent.IncomingSpan); ok {
		info := &agent.RequestInfo{Method: "POST", URI: fullMethod}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			info.RemoteAddr = p.Addr.String()
		}
		incoming.SetRequestInfo(info)
	}
	return ctx, span
}

func end(span agent.Span, err error) {
	if err != nil {
		span.EndWithError(err)
		return
	}
	span.End()
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context {
	return s.ctx
}
