package agent_test

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/propagation"
)

var _ = Describe("AuxThreadContext", func() {
	var (
		f        *fixture
		incoming *agent.IncomingSpan
		aux      *agent.AuxThreadContext
		worker   *agent.Holder
	)

	BeforeEach(func() {
		f = newFixture()
		incoming = f.start(map[string]string{})
		aux = f.holder.Get().CreateAuxThreadContext()
		worker = agent.NewHolder()
	})

	It("installs a fresh context linked to the transaction", func() {
		span := aux.Start(worker)
		tc := worker.Get()
		Expect(tc).ToNot(BeNil())
		Expect(tc).ToNot(BeIdenticalTo(f.holder.Get()))
		Expect(tc.Transaction()).To(BeIdenticalTo(incoming))
		Expect(tc.CurrentNestingGroupID()).To(BeZero())
		Expect(tc.CurrentSuppressionKeyID()).To(BeZero())
		Expect(tc.SpanContext().SpanID).To(Equal(incoming.SpanContext().SpanID))

		outgoing := agent.StartOutgoingSpan(tc, "HTTP", "GET", propagation.TextMap, map[string]string{}, nil, "http")
		outgoing.End()
		Expect(f.finished()[0].Context.ParentID).To(Equal(incoming.SpanContext().SpanID))

		span.End()
		Expect(worker.Get()).To(BeNil())
	})

	It("can be started any number of times", func() {
		other := agent.NewHolder()
		a := aux.Start(worker)
		b := aux.Start(other)
		Expect(worker.Get()).ToNot(BeIdenticalTo(other.Get()))
		a.End()
		b.End()
		Expect(worker.Get()).To(BeNil())
		Expect(other.Get()).To(BeNil())
	})

	It("panics on Extend", func() {
		span := aux.Start(worker)
		Expect(func() { span.Extend() }).To(Panic())
	})

	It("does not complete an async transaction on a plain end", func() {
		incoming.SetAsync()
		incoming.End()
		aux.Start(worker).End()
		Expect(f.finished()).To(BeEmpty())
	})

	Context("when the transaction is async", func() {
		BeforeEach(func() {
			incoming.SetAsync()
			incoming.End()
		})

		It("completes the transaction when the marked span ends", func() {
			span := aux.StartAndMarkAsyncComplete(worker)
			Expect(f.finished()).To(BeEmpty())
			span.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("holds async completion signaled inside the span until it ends", func() {
			span := aux.Start(worker)
			worker.Get().SetTransactionAsyncComplete()
			Expect(f.finished()).To(BeEmpty())

			span.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("ignores a repeated end", func() {
			span := aux.StartAndMarkAsyncComplete(worker)
			span.End()
			Expect(f.finished()).To(HaveLen(1))

			next := aux.Start(worker)
			installed := worker.Get()
			span.End()
			Expect(worker.Get()).To(BeIdenticalTo(installed))
			next.End()
			Expect(f.finished()).To(HaveLen(1))
		})
	})

	It("emits a contract violation when the transaction is not async", func() {
		aux.StartAndMarkAsyncComplete(worker).End()
		Expect(f.events).To(Receive())
		Expect(incoming.Finished()).To(BeFalse())
	})

	Context("on a goroutine that is already in a transaction", func() {
		It("leaves the existing context untouched", func() {
			existing := f.holder.Get()
			span := aux.Start(f.holder)
			Expect(span).To(BeIdenticalTo(agent.NopSpan))

			span.EndWithError(errors.New("ignored"))
			Expect(f.holder.Get()).To(BeIdenticalTo(existing))
			Expect(incoming.Err()).To(BeNil())
		})

		It("forwards async completion to the existing context", func() {
			incoming.SetAsync()
			aux.StartAndMarkAsyncComplete(f.holder).End()
			Expect(f.finished()).To(BeEmpty())

			incoming.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("counts re-entrant starts", func() {
			aux.Start(f.holder)
			aux.Start(worker)

			expected := `
# HELP test_aux_starts_total Auxiliary context starts, by whether the goroutine already had an active context.
# TYPE test_aux_starts_total counter
test_aux_starts_total{reentrant="false"} 1
test_aux_starts_total{reentrant="true"} 1
`
			Expect(testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "test_aux_starts_total")).To(Succeed())
		})
	})
})
