package agent_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

var _ = Describe("Agent", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture()
	})

	Describe("StartIncomingSpan", func() {
		It("starts a new trace without propagation headers", func() {
			incoming := f.start(map[string]string{})
			sc := incoming.SpanContext()
			Expect(sc.IsValid()).To(BeTrue())
			Expect(sc.ParentID).To(BeZero())
			Expect(f.holder.Get().Transaction()).To(BeIdenticalTo(incoming))
			Expect(incoming.MessageSupplier().Message()).To(Equal("GET /"))
		})

		It("joins a propagated context", func() {
			incoming := f.start(map[string]string{
				"X-B3-TraceId": "463ac35c9f6413ad",
				"X-B3-SpanId":  "a2fb4a1d1a96d312",
				"X-B3-Sampled": "1",
			})
			sc := incoming.SpanContext()
			Expect(sc.TraceID).To(Equal(uint64(0x463ac35c9f6413ad)))
			Expect(sc.SpanID).To(Equal(uint64(0xa2fb4a1d1a96d312)))

			incoming.End()
			raw := f.finished()[0]
			Expect(raw.Shared).To(BeTrue())
			Expect(raw.Operation).To(Equal("GET /"))
			Expect(raw.Tags).To(HaveKeyWithValue(agent.TagTransactionType, "Web"))
		})

		It("honors a propagated sampling decision", func() {
			incoming := f.start(map[string]string{"x-b3-sampled": "0"})
			Expect(incoming.SpanContext().Sampled()).To(BeFalse())
			incoming.End()
			Expect(f.finished()).To(BeEmpty())
		})

		It("starts a new trace on malformed headers and reports it", func() {
			incoming := f.start(map[string]string{"x-b3-traceid": "not-hex", "x-b3-spanid": "1"})
			Expect(incoming.SpanContext().IsValid()).To(BeTrue())

			var event events.Event
			Expect(f.events).To(Receive(&event))
			_, ok := event.(events.EventPropagationError)
			Expect(ok).To(BeTrue())
		})

		It("returns NopSpan for a nested transaction", func() {
			outer := f.start(map[string]string{})
			nested := agent.StartIncomingSpan(f.agent, "Web", "nested", propagation.TextMap, map[string]string{},
				nil, "http", f.holder, 0, 0)
			Expect(nested).To(BeIdenticalTo(agent.NopSpan))
			Expect(f.holder.Get().Transaction()).To(BeIdenticalTo(outer))
		})
	})

	Describe("the holder in a context.Context", func() {
		It("round trips", func() {
			ctx := agent.NewContext(context.Background(), f.holder)
			Expect(agent.HolderFromContext(ctx)).To(BeIdenticalTo(f.holder))
			Expect(agent.ThreadContextFromContext(ctx)).To(BeNil())

			f.start(map[string]string{})
			Expect(agent.ThreadContextFromContext(ctx)).To(BeIdenticalTo(f.holder.Get()))
			Expect(agent.HolderFromContext(context.Background())).To(BeNil())
		})
	})

	Describe("scenarios", func() {
		It("propagates a new trace downstream through an outgoing call", func() {
			incoming := f.start(map[string]string{})
			tc := f.holder.Get()

			headers := http.Header{}
			outgoing := agent.StartOutgoingSpan(tc, "HTTP", "GET /downstream", propagation.HTTPHeaders, headers, nil, "http client")

			downstream := newFixture()
			downstreamSpan := agent.StartIncomingSpan(downstream.agent, "Web", "GET /downstream", propagation.HTTPHeaders, headers,
				nil, "http", downstream.holder, 0, 0).(*agent.IncomingSpan)

			Expect(downstreamSpan.SpanContext().TraceID).To(Equal(incoming.SpanContext().TraceID))
			Expect(downstreamSpan.SpanContext().ParentID).To(Equal(incoming.SpanContext().SpanID))

			downstreamSpan.End()
			outgoing.End()
			incoming.End()
			Expect(downstream.finished()[0].Context.SpanID).To(Equal(f.finished()[0].Context.SpanID))
		})

		It("finishes an async transaction from a worker with its error", func() {
			incoming := f.start(map[string]string{})
			tc := f.holder.Get()
			tc.SetTransactionAsync()
			aux := tc.CreateAuxThreadContext()
			incoming.End()
			Expect(f.finished()).To(BeEmpty())

			cause := errors.New("worker failed")
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				holder := agent.NewHolder()
				span := aux.StartAndMarkAsyncComplete(holder)
				Expect(f.finished()).To(BeEmpty())
				span.EndWithError(cause)
			}()
			wg.Wait()

			spans := f.finished()
			Expect(spans).To(HaveLen(1))
			Expect(spans[0].Err()).To(Equal(cause))
			Expect(incoming.Err()).To(Equal(cause))
		})

		It("counts started and finished transactions", func() {
			f.start(map[string]string{}).End()

			expected := `
# HELP test_transactions_finished_total Incoming spans reported to the tracer.
# TYPE test_transactions_finished_total counter
test_transactions_finished_total 1
`
			Expect(testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "test_transactions_finished_total")).To(Succeed())
		})
	})

	It("reuses counters registered by another agent", func() {
		t := tracer.New()
		_, err := agent.New(t, agent.WithRegisterer(f.registry), agent.WithMetricsNamespace("test"))
		Expect(err).ToNot(HaveOccurred())
	})
})
