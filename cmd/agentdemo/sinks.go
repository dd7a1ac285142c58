package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaeger "github.com/uber/jaeger-client-go"
	jaegerConfig "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-client-go/zipkin"

	"github.com/trask/brave-agent/agentot"
	"github.com/trask/brave-agent/collector"
	"github.com/trask/brave-agent/tracer"
)

// fanout reports every batch to each reporter, collecting their errors.
type fanout []tracer.Reporter

func (f fanout) Report(ctx context.Context, spans []tracer.RawSpan) error {
	var errs []error
	for _, r := range f {
		if err := r.Report(ctx, spans); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// logReporter writes one log entry per span.
func logReporter(log logrus.FieldLogger) tracer.Reporter {
	return tracer.ReporterFunc(func(_ context.Context, spans []tracer.RawSpan) error {
		for _, span := range spans {
			entry := log.WithFields(logrus.Fields{
				"trace_id": span.Context.TraceIDString(),
				"span_id":  span.Context.SpanIDString(),
				"duration": span.Duration,
			})
			if span.Context.ParentID != 0 {
				entry = entry.WithField("parent_id", fmt.Sprintf("%016x", span.Context.ParentID))
			}
			if err := span.Err(); err != nil {
				entry = entry.WithError(err)
			}
			entry.Info(span.Operation)
		}
		return nil
	})
}

type jaegerLogger struct {
	log logrus.FieldLogger
}

func (j jaegerLogger) Error(msg string) {
	j.log.Error(msg)
}

func (j jaegerLogger) Infof(msg string, args ...interface{}) {
	j.log.Debugf(msg, args...)
}

// newJaegerTracer builds a jaeger tracer reading B3 headers so that replayed
// spans keep their parents.
func newJaegerTracer(serviceName string, opts jaegerOptions, log logrus.FieldLogger) (opentracing.Tracer, io.Closer, error) {
	if opts.AgentHost == "" && opts.Endpoint == "" {
		return nil, nil, errors.New("jaeger sink needs --jaeger-agent-host or --jaeger-endpoint")
	}
	b3 := zipkin.NewZipkinB3HTTPHeaderPropagator()
	cfg := &jaegerConfig.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegerConfig.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegerConfig.ReporterConfig{
			LocalAgentHostPort:  fmt.Sprintf("%s:%d", opts.AgentHost, opts.AgentPort),
			CollectorEndpoint:   opts.Endpoint,
			BufferFlushInterval: time.Second,
		},
	}
	return cfg.NewTracer(
		jaegerConfig.Logger(jaegerLogger{log: log}),
		jaegerConfig.Injector(opentracing.HTTPHeaders, b3),
		jaegerConfig.Extractor(opentracing.HTTPHeaders, b3),
	)
}

func newReporter(sinks []string, log logrus.FieldLogger) (tracer.Reporter, func(), error) {
	var (
		reporters fanout
		closers   []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, sink := range sinks {
		switch sink {
		case "log":
			reporters = append(reporters, logReporter(log.WithField("sink", "log")))
		case "collector":
			opts := []collector.Option{
				collector.WithAccessToken(collectorOpts.AccessToken),
				collector.WithComponentName(options.ServiceName),
			}
			if collectorOpts.HTTP {
				reporters = append(reporters, collector.NewHTTPReporter(collectorOpts.Address, opts...))
				continue
			}
			if collectorOpts.TLS {
				opts = append(opts, collector.WithTLS(nil))
			}
			r, err := collector.NewGRPCReporter(collectorOpts.Address, opts...)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			reporters = append(reporters, r)
			closers = append(closers, func() { r.Close() })
		case "jaeger":
			t, closer, err := newJaegerTracer(options.ServiceName, jaegerOpts, log.WithField("sink", "jaeger"))
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			reporters = append(reporters, agentot.NewReporter(t, agentot.WithOriginalIDs(true)))
			closers = append(closers, func() { closer.Close() })
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown sink %q", sink)
		}
	}
	return reporters, closeAll, nil
}
