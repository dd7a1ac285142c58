package metrics_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/trask/brave-agent/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var reg *prometheus.Registry

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
	})

	It("counts spans by kind", func() {
		m, err := metrics.New("test", reg)
		Expect(err).ToNot(HaveOccurred())

		m.SpanStarted(metrics.KindIncoming)
		m.SpanStarted(metrics.KindQuery)
		m.SpanStarted(metrics.KindQuery)

		expected := `
# HELP test_spans_started_total Spans started, by kind.
# TYPE test_spans_started_total counter
test_spans_started_total{kind="incoming"} 1
test_spans_started_total{kind="query"} 2
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_spans_started_total")).To(Succeed())
	})

	It("shares counters between instances on one registerer", func() {
		a, err := metrics.New("test", reg)
		Expect(err).ToNot(HaveOccurred())
		b, err := metrics.New("test", reg)
		Expect(err).ToNot(HaveOccurred())

		a.SpansReported(2)
		b.SpansReported(3)
		b.SpansDropped(0)

		Expect(testutil.GatherAndCount(reg, "test_recorder_spans_reported_total")).To(Equal(1))
		expected := `
# HELP test_recorder_spans_reported_total Finished spans handed to the reporter.
# TYPE test_recorder_spans_reported_total counter
test_recorder_spans_reported_total 5
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_recorder_spans_reported_total")).To(Succeed())
	})

	It("labels aux starts by re-entrance", func() {
		m, err := metrics.New("", reg)
		Expect(err).ToNot(HaveOccurred())

		m.AuxStarted(true)
		m.AuxStarted(false)
		m.AuxStarted(false)

		count, err := testutil.GatherAndCount(reg, "brave_agent_aux_starts_total")
		Expect(err).ToNot(HaveOccurred())
		Expect(count).To(Equal(2))
	})

	It("ignores calls on a nil receiver", func() {
		var m *metrics.Metrics
		Expect(func() {
			m.SpanStarted(metrics.KindAux)
			m.TransactionFinished()
			m.AuxStarted(true)
			m.SpansDropped(1)
			m.SpansReported(1)
		}).ToNot(Panic())
	})
})
