package collector

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/lightstep/lightstep-tracer-common/golang/gogo/collectorpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/randx"
)

const (
	DefaultTimeout = 30 * time.Second

	// ComponentNameKey is the reporter tag naming the reporting service.
	ComponentNameKey = "lightstep.component_name"
	// GUIDKey is the reporter tag carrying the reporter id.
	GUIDKey = "lightstep.guid"
)

// Option configures a reporter.
type Option func(*config)

type config struct {
	accessToken   string
	reporterID    uint64
	tags          map[string]string
	timeout       time.Duration
	httpClient    *http.Client
	dialOptions   []grpc.DialOption
	serviceClient collectorpb.CollectorServiceClient
	onEvent       events.Handler
}

func defaultConfig() *config {
	return &config{
		reporterID: randx.GUID(),
		tags:       map[string]string{},
		timeout:    DefaultTimeout,
		dialOptions: []grpc.DialOption{
			grpc.WithInsecure(),
		},
	}
}

func newConfig(opts ...Option) *config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithAccessToken(token string) Option {
	return func(c *config) {
		c.accessToken = token
	}
}

func WithComponentName(name string) Option {
	return func(c *config) {
		c.tags[ComponentNameKey] = name
	}
}

// WithReporterTags adds tags describing the reporting process to every
// report.
func WithReporterTags(tags map[string]string) Option {
	return func(c *config) {
		for k, v := range tags {
			c.tags[k] = v
		}
	}
}

func WithReporterID(id uint64) Option {
	return func(c *config) {
		c.reporterID = id
	}
}

// WithTimeout bounds a single report, on top of the context deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithDialOptions replaces the options used to dial the collector. The
// default dials without transport security.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *config) {
		c.dialOptions = opts
	}
}

// WithTLS dials the collector over TLS. A nil config uses the system
// defaults.
func WithTLS(tlsConfig *tls.Config) Option {
	return func(c *config) {
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		c.dialOptions = []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig))}
	}
}

// WithServiceClient reports through client instead of dialing.
func WithServiceClient(client collectorpb.CollectorServiceClient) Option {
	return func(c *config) {
		c.serviceClient = client
	}
}

func WithEventHandler(handler events.Handler) Option {
	return func(c *config) {
		c.onEvent = handler
	}
}
