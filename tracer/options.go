package tracer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/randx"
	"github.com/trask/brave-agent/internal/timex"
)

const (
	DefaultReportInterval   = time.Second * 3
	DefaultMaxBufferedSpans = 1000
	DefaultReportTimeout    = time.Second * 30
)

// Option configures a Tracer.
type Option func(*config)

type config struct {
	sampler          Sampler
	recorder         SpanRecorder
	clock            timex.Clock
	localServiceName string
	traceID128Bit    bool
	supportsJoin     bool
	onEvent          events.Handler
	idOptions        []randx.Option
}

func defaultConfig() *config {
	return &config{
		sampler:      AlwaysSample,
		recorder:     noopRecorder{},
		clock:        timex.NewClock(),
		supportsJoin: true,
	}
}

// WithSampler sets the sampler consulted for new traces without an upstream
// sampling decision.
func WithSampler(sampler Sampler) Option {
	return func(c *config) {
		c.sampler = sampler
	}
}

// WithRecorder sets where sampled spans go once finished.
func WithRecorder(recorder SpanRecorder) Option {
	return func(c *config) {
		c.recorder = recorder
	}
}

func WithClock(clock timex.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

func WithLocalServiceName(name string) Option {
	return func(c *config) {
		c.localServiceName = name
	}
}

// WithTraceID128Bit makes new traces use 128-bit trace ids.
func WithTraceID128Bit(enabled bool) Option {
	return func(c *config) {
		c.traceID128Bit = enabled
	}
}

// WithJoinSupport controls whether JoinSpan shares the span id of an
// incoming context. When disabled JoinSpan starts a child instead.
func WithJoinSupport(enabled bool) Option {
	return func(c *config) {
		c.supportsJoin = enabled
	}
}

func WithEventHandler(handler events.Handler) Option {
	return func(c *config) {
		c.onEvent = handler
	}
}

// WithIDSeed makes generated ids deterministic.
func WithIDSeed(seed int64) Option {
	return func(c *config) {
		c.idOptions = []randx.Option{randx.WithPool(randx.NewPool(seed, 1))}
	}
}

// RecorderOption configures a BufferedRecorder.
type RecorderOption func(*recorderConfig)

type recorderConfig struct {
	reportInterval   time.Duration
	reportTimeout    time.Duration
	maxBufferedSpans int
	clock            timex.Clock
	onEvent          events.Handler
	registerer       prometheus.Registerer
	namespace        string
}

func defaultRecorderConfig() *recorderConfig {
	return &recorderConfig{
		reportInterval:   DefaultReportInterval,
		reportTimeout:    DefaultReportTimeout,
		maxBufferedSpans: DefaultMaxBufferedSpans,
		clock:            timex.NewClock(),
	}
}

func WithReportInterval(d time.Duration) RecorderOption {
	return func(c *recorderConfig) {
		c.reportInterval = d
	}
}

func WithReportTimeout(d time.Duration) RecorderOption {
	return func(c *recorderConfig) {
		c.reportTimeout = d
	}
}

// WithMaxBufferedSpans bounds the spans held between flushes. Spans recorded
// while the buffer is full are dropped.
func WithMaxBufferedSpans(n int) RecorderOption {
	return func(c *recorderConfig) {
		c.maxBufferedSpans = n
	}
}

func WithRecorderClock(clock timex.Clock) RecorderOption {
	return func(c *recorderConfig) {
		c.clock = clock
	}
}

func WithRecorderEventHandler(handler events.Handler) RecorderOption {
	return func(c *recorderConfig) {
		c.onEvent = handler
	}
}

// WithRecorderRegisterer counts reported and dropped spans on reg.
func WithRecorderRegisterer(reg prometheus.Registerer, namespace string) RecorderOption {
	return func(c *recorderConfig) {
		c.registerer = reg
		c.namespace = namespace
	}
}
