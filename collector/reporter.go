// Package collector reports finished spans to a LightStep compatible
// collector, over gRPC or over HTTP.
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/gogo/protobuf/proto"
	"github.com/lightstep/lightstep-tracer-common/golang/gogo/collectorpb"
	"google.golang.org/grpc"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/tracer"
)

const (
	// HTTPPath is where the HTTP reporter posts reports.
	HTTPPath = "/api/v2/reports"

	contentTypeHeader = "Content-Type"
	accessTokenHeader = "Lightstep-Access-Token"
	protoContentType  = "application/octet-stream"
)

// GRPCReporter sends reports through a collectorpb.CollectorServiceClient.
type GRPCReporter struct {
	cfg    *config
	emit   events.Handler
	client collectorpb.CollectorServiceClient
	conn   *grpc.ClientConn
}

var _ tracer.Reporter = (*GRPCReporter)(nil)

// NewGRPCReporter dials the collector at address, unless a service client
// was given with WithServiceClient.
func NewGRPCReporter(address string, opts ...Option) (*GRPCReporter, error) {
	c := newConfig(opts...)
	r := &GRPCReporter{cfg: c, emit: events.Emitter(c.onEvent), client: c.serviceClient}
	if r.client == nil {
		conn, err := grpc.Dial(address, c.dialOptions...)
		if err != nil {
			r.emit(events.NewEventConnectionError(err))
			return nil, err
		}
		r.conn = conn
		r.client = collectorpb.NewCollectorServiceClient(conn)
	}
	return r, nil
}

func (r *GRPCReporter) Report(ctx context.Context, spans []tracer.RawSpan) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	resp, err := r.client.Report(ctx, r.cfg.toReportRequest(spans))
	if err != nil {
		return err
	}
	return checkResponse(resp, r.emit)
}

// Close closes the connection dialed by NewGRPCReporter.
func (r *GRPCReporter) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// HTTPReporter posts protobuf encoded reports.
type HTTPReporter struct {
	cfg    *config
	emit   events.Handler
	url    string
	client *http.Client
}

var _ tracer.Reporter = (*HTTPReporter)(nil)

// NewHTTPReporter reports to the collector at baseURL.
func NewHTTPReporter(baseURL string, opts ...Option) *HTTPReporter {
	c := newConfig(opts...)
	client := c.httpClient
	if client == nil {
		client = &http.Client{Timeout: c.timeout}
	}
	return &HTTPReporter{
		cfg:    c,
		emit:   events.Emitter(c.onEvent),
		url:    strings.TrimSuffix(baseURL, "/") + HTTPPath,
		client: client,
	}
}

func (r *HTTPReporter) Report(ctx context.Context, spans []tracer.RawSpan) error {
	body, err := proto.Marshal(r.cfg.toReportRequest(spans))
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set(contentTypeHeader, protoContentType)
	req.Header.Set(accessTokenHeader, r.cfg.accessToken)

	httpResp, err := r.client.Do(req)
	if err != nil {
		r.emit(events.NewEventConnectionError(err))
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector responded %s", httpResp.Status)
	}
	resp := &collectorpb.ReportResponse{}
	if err := proto.Unmarshal(respBody, resp); err != nil {
		return err
	}
	return checkResponse(resp, r.emit)
}

// checkResponse turns a Disable command into tracer.ErrDisabled. Errors the
// collector reports about accepted spans are emitted, not returned.
func checkResponse(resp *collectorpb.ReportResponse, emit events.Handler) error {
	for _, cmd := range resp.GetCommands() {
		if cmd.Disable {
			return tracer.NewErrDisabled("collector sent a disable command")
		}
	}
	if errs := resp.GetErrors(); len(errs) > 0 {
		emit(events.NewEventFlushError(errors.New(strings.Join(errs, "; ")), events.FlushErrorReport))
	}
	return nil
}
