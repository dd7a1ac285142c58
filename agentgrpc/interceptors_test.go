package agentgrpc_test

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/lightstep/lightstep-tracer-common/golang/gogo/collectorpb"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/agentgrpc"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

// backend serves the collector service and remembers what each call saw.
type backend struct {
	mu      sync.Mutex
	seen    []*agent.ThreadContext
	failure error
}

func (b *backend) Report(ctx context.Context, _ *collectorpb.ReportRequest) (*collectorpb.ReportResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, agent.ThreadContextFromContext(ctx))
	return &collectorpb.ReportResponse{}, b.failure
}

func (b *backend) contexts() []*agent.ThreadContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*agent.ThreadContext(nil), b.seen...)
}

func newAgent(recorder tracer.SpanRecorder) *agent.Agent {
	a, err := agent.New(tracer.New(tracer.WithRecorder(recorder)))
	Expect(err).ToNot(HaveOccurred())
	return a
}

var _ = Describe("Metadata", func() {
	It("reads and writes lower-cased keys", func() {
		md := metadata.MD{}
		agentgrpc.Metadata.Set(md, "X-B3-TraceId", "0000000000000001")
		Expect(md).To(HaveKey("x-b3-traceid"))
		Expect(agentgrpc.Metadata.Get(md, "X-B3-TRACEID")).To(Equal("0000000000000001"))
		Expect(agentgrpc.Metadata.Get(md, "missing")).To(BeEmpty())
	})

	It("round trips a span context", func() {
		sc := propagation.SpanContext{TraceID: 1, SpanID: 2, Sampling: propagation.SamplingAccept}
		md := metadata.MD{}
		propagation.Inject(sc, md, agentgrpc.Metadata)
		extracted := propagation.Extract(md, agentgrpc.Metadata)
		Expect(extracted.Context.TraceID).To(Equal(uint64(1)))
		Expect(extracted.Context.SpanID).To(Equal(uint64(2)))
	})
})

var _ = Describe("Interceptors", func() {
	var (
		serverSpans *tracer.InMemoryRecorder
		clientSpans *tracer.InMemoryRecorder
		client      *agent.Agent
		be          *backend
		server      *grpc.Server
		conn        *grpc.ClientConn
		stub        collectorpb.CollectorServiceClient
	)

	BeforeEach(func() {
		serverSpans = tracer.NewInMemoryRecorder()
		clientSpans = tracer.NewInMemoryRecorder()
		client = newAgent(clientSpans)
		be = &backend{}

		server = grpc.NewServer(grpc.UnaryInterceptor(agentgrpc.UnaryServerInterceptor(newAgent(serverSpans))))
		collectorpb.RegisterCollectorServiceServer(server, be)
		listener, err := net.Listen("tcp", "localhost:")
		Expect(err).To(Succeed())
		go server.Serve(listener)

		conn, err = grpc.Dial(listener.Addr().String(),
			grpc.WithInsecure(),
			grpc.WithUnaryInterceptor(agentgrpc.UnaryClientInterceptor(agentgrpc.WithOutgoingType("rpc"))),
		)
		Expect(err).ToNot(HaveOccurred())
		stub = collectorpb.NewCollectorServiceClient(conn)
	})

	AfterEach(func() {
		Expect(conn.Close()).To(Succeed())
		server.Stop()
	})

	It("starts a transaction for calls without a caller trace", func() {
		_, err := stub.Report(context.Background(), &collectorpb.ReportRequest{})
		Expect(err).ToNot(HaveOccurred())

		Expect(clientSpans.GetSpans()).To(BeEmpty())
		spans := serverSpans.GetSpans()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Operation).To(HaveSuffix("CollectorService/Report"))
		Expect(spans[0].Tags).To(HaveKeyWithValue(agent.TagTransactionType, agentgrpc.DefaultTransactionType))
		Expect(spans[0].Tags).To(HaveKey(agent.TagPeerAddress))
		Expect(spans[0].Context.ParentID).To(BeZero())

		seen := be.contexts()
		Expect(seen).To(HaveLen(1))
		Expect(seen[0]).ToNot(BeNil())
	})

	It("continues the caller's trace", func() {
		holder := agent.NewHolder()
		caller := agent.StartIncomingSpan(client, "Web", "GET /", propagation.TextMap, map[string]string{},
			agent.Message("GET /"), "http request", holder, 0, 0)
		ctx := agent.NewContext(context.Background(), holder)

		_, err := stub.Report(ctx, &collectorpb.ReportRequest{})
		Expect(err).ToNot(HaveOccurred())
		caller.End()

		callerSpans := clientSpans.GetSpans()
		Expect(callerSpans).To(HaveLen(2))
		outgoing := callerSpans[0]
		Expect(outgoing.Tags).To(HaveKeyWithValue(agent.TagOutgoingType, "rpc"))
		Expect(outgoing.Context.ParentID).To(Equal(callerSpans[1].Context.SpanID))

		served := serverSpans.GetSpans()
		Expect(served).To(HaveLen(1))
		Expect(served[0].Shared).To(BeTrue())
		Expect(served[0].Context.TraceID).To(Equal(outgoing.Context.TraceID))
		Expect(served[0].Context.SpanID).To(Equal(outgoing.Context.SpanID))
	})

	It("records handler errors on the transaction", func() {
		be.failure = errors.New("collector unavailable")

		_, err := stub.Report(context.Background(), &collectorpb.ReportRequest{})
		Expect(err).To(HaveOccurred())

		spans := serverSpans.GetSpans()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Err()).To(MatchError("collector unavailable"))
	})
})
