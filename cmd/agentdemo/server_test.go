package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/tracer"
)

var _ = Describe("demo application", func() {
	var (
		recorder *tracer.InMemoryRecorder
		server   *httptest.Server
	)

	BeforeEach(func() {
		recorder = tracer.NewInMemoryRecorder()
		a, err := agent.New(tracer.New(tracer.WithRecorder(recorder)))
		Expect(err).ToNot(HaveOccurred())

		// The mux needs its own URL for backend calls.
		var handler http.Handler
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(w, r)
		}))
		log := logrus.New()
		log.SetOutput(io.Discard)
		handler = newMux(a, log, server.URL)
	})

	AfterEach(func() {
		server.Close()
	})

	It("traces the frontend, its query, its backend call and the audit", func() {
		resp, err := http.Get(server.URL + "/?user=alice")
		Expect(err).ToNot(HaveOccurred())
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(string(body)).To(ContainSubstring("backend said ok"))

		// query, outgoing call, backend transaction, frontend transaction
		Eventually(recorder.GetSpans).Should(HaveLen(4))
		spans := recorder.GetSpans()
		frontend := spans[3]
		Expect(frontend.Tags).To(HaveKeyWithValue(agent.TagTransactionUser, "alice"))
		for _, span := range spans {
			Expect(span.Context.TraceID).To(Equal(frontend.Context.TraceID))
		}
	})
})

var _ = Describe("fanout", func() {
	It("reports to every reporter and joins their errors", func() {
		var calls int
		ok := tracer.ReporterFunc(func(context.Context, []tracer.RawSpan) error {
			calls++
			return nil
		})
		failing := tracer.ReporterFunc(func(context.Context, []tracer.RawSpan) error {
			calls++
			return errors.New("unreachable")
		})

		err := fanout{ok, failing, ok}.Report(context.Background(), nil)
		Expect(calls).To(Equal(3))
		Expect(err).To(MatchError("unreachable"))
	})
})

var _ = Describe("logReporter", func() {
	It("logs one entry per span", func() {
		buf := &bytes.Buffer{}
		log := logrus.New()
		log.SetOutput(buf)
		log.SetFormatter(&logrus.JSONFormatter{})

		t := tracer.New(tracer.WithRecorder(tracer.NewInMemoryRecorder()))
		span := t.NewTrace("GET /")
		span.Finish()

		raw := tracer.RawSpan{Context: span.SpanContext(), Operation: "GET /"}
		Expect(logReporter(log).Report(context.Background(), []tracer.RawSpan{raw})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`"msg":"GET /"`))
		Expect(buf.String()).To(ContainSubstring(span.SpanContext().TraceIDString()))
	})
})

var _ = Describe("newReporter", func() {
	It("rejects unknown sinks", func() {
		_, _, err := newReporter([]string{"log", "carrier-pigeon"}, logrus.New())
		Expect(err).To(MatchError(`unknown sink "carrier-pigeon"`))
	})

	It("requires a jaeger address", func() {
		jaegerOpts = jaegerOptions{}
		_, _, err := newReporter([]string{"jaeger"}, logrus.New())
		Expect(err).To(HaveOccurred())
	})
})
