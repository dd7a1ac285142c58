package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/metrics"
	"github.com/trask/brave-agent/tracer"
)

var VERSION = "unknown"

type rootOptions struct {
	Listen      string
	ServiceName string
	Sinks       []string
	Rate        float64
	TraceID128  bool

	LogFormat string
	LogLevel  string

	ReportInterval time.Duration
	MaxBuffered    int
}

type collectorOptions struct {
	Address     string
	AccessToken string
	HTTP        bool
	TLS         bool
}

type jaegerOptions struct {
	AgentHost string
	AgentPort int
	Endpoint  string
}

var options = rootOptions{
	Listen:         "127.0.0.1:8080",
	ServiceName:    "agentdemo",
	Sinks:          []string{"log"},
	Rate:           1,
	LogFormat:      "text",
	LogLevel:       "info",
	ReportInterval: tracer.DefaultReportInterval,
	MaxBuffered:    tracer.DefaultMaxBufferedSpans,
}

var collectorOpts = collectorOptions{
	Address: "localhost:8360",
}

var jaegerOpts = jaegerOptions{
	AgentPort: 6831,
}

func newLogger(format, level string) (*logrus.Logger, error) {
	log := logrus.New()
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano, FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)
	return log, nil
}

func run(cmd *cobra.Command, _ []string) error {
	log, err := newLogger(options.LogFormat, options.LogLevel)
	if err != nil {
		return err
	}
	onEvent := events.NewOnEventLogger(log)
	events.SetGlobalEventHandler(onEvent)

	reg := prometheus.NewRegistry()
	reporter, closeSinks, err := newReporter(options.Sinks, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	recorder, err := tracer.NewBufferedRecorder(reporter,
		tracer.WithReportInterval(options.ReportInterval),
		tracer.WithMaxBufferedSpans(options.MaxBuffered),
		tracer.WithRecorderEventHandler(onEvent),
		tracer.WithRecorderRegisterer(reg, metrics.DefaultNamespace),
	)
	if err != nil {
		return err
	}
	t := tracer.New(
		tracer.WithRecorder(recorder),
		tracer.WithSampler(tracer.NewBoundarySampler(options.Rate)),
		tracer.WithLocalServiceName(options.ServiceName),
		tracer.WithTraceID128Bit(options.TraceID128),
		tracer.WithEventHandler(onEvent),
	)
	a, err := agent.New(t, agent.WithEventHandler(onEvent), agent.WithRegisterer(reg))
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", options.Listen)
	if err != nil {
		return err
	}
	mux := newMux(a, log, "http://"+listener.Addr().String())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("Exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.WithField("listen", listener.Addr().String()).Info("Serving...")
	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.Close(closeCtx)
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agentdemo",
		Short:        "Instrumented demo application",
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&options.Listen, "listen", options.Listen, "HTTP listen address")
	flags.StringVar(&options.ServiceName, "service-name", options.ServiceName, "Local service name")
	flags.StringSliceVar(&options.Sinks, "sinks", options.Sinks, "Span sinks: log, collector, jaeger")
	flags.Float64Var(&options.Rate, "sample-rate", options.Rate, "Fraction of new traces to sample")
	flags.BoolVar(&options.TraceID128, "trace-id-128bit", options.TraceID128, "Start traces with 128-bit trace ids")
	flags.StringVar(&options.LogFormat, "log-format", options.LogFormat, "Log format: json, text")
	flags.StringVar(&options.LogLevel, "log-level", options.LogLevel, "Log level: info, warn, error, debug")
	flags.DurationVar(&options.ReportInterval, "report-interval", options.ReportInterval, "Interval between span reports")
	flags.IntVar(&options.MaxBuffered, "max-buffered-spans", options.MaxBuffered, "Spans buffered before dropping")

	flags.StringVar(&collectorOpts.Address, "collector-address", collectorOpts.Address, "Collector address, or base URL with --collector-http")
	flags.StringVar(&collectorOpts.AccessToken, "collector-access-token", collectorOpts.AccessToken, "Collector access token")
	flags.BoolVar(&collectorOpts.HTTP, "collector-http", collectorOpts.HTTP, "Report over HTTP instead of gRPC")
	flags.BoolVar(&collectorOpts.TLS, "collector-tls", collectorOpts.TLS, "Dial the gRPC collector over TLS")

	flags.StringVar(&jaegerOpts.AgentHost, "jaeger-agent-host", jaegerOpts.AgentHost, "Jaeger agent host")
	flags.IntVar(&jaegerOpts.AgentPort, "jaeger-agent-port", jaegerOpts.AgentPort, "Jaeger agent port")
	flags.StringVar(&jaegerOpts.Endpoint, "jaeger-endpoint", jaegerOpts.Endpoint, "Jaeger collector endpoint")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(VERSION)
		},
	})
	return rootCmd
}

func execute() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
