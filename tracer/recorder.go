package tracer

import (
	"context"
	"sync"

	"github.com/trask/brave-agent/events"
	"github.com/trask/brave-agent/internal/metrics"
	"github.com/trask/brave-agent/internal/timex"
)

// SpanRecorder receives every sampled span once, when it finishes.
type SpanRecorder interface {
	RecordSpan(RawSpan)
}

type noopRecorder struct{}

func (noopRecorder) RecordSpan(RawSpan) {}

// InMemoryRecorder keeps finished spans in memory, mostly for tests.
type InMemoryRecorder struct {
	mu    sync.Mutex
	spans []RawSpan
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

func (r *InMemoryRecorder) RecordSpan(span RawSpan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = append(r.spans, span)
}

// GetSpans returns a copy of the recorded spans in finish order.
func (r *InMemoryRecorder) GetSpans() []RawSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RawSpan(nil), r.spans...)
}

func (r *InMemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spans = nil
}

// Reporter sends a batch of finished spans to a backend.
type Reporter interface {
	Report(ctx context.Context, spans []RawSpan) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, spans []RawSpan) error

func (f ReporterFunc) Report(ctx context.Context, spans []RawSpan) error {
	return f(ctx, spans)
}

// BufferedRecorder buffers finished spans and hands them to a Reporter on
// every report interval, and on Flush and Close.
type BufferedRecorder struct {
	reporter Reporter
	cfg      *recorderConfig
	emit     events.Handler
	metrics  *metrics.Metrics

	// flushMu serializes flushes so batches reach the reporter in order.
	flushMu sync.Mutex

	mu           sync.Mutex
	buffer       []RawSpan
	dropped      int
	closed       bool
	disabled     bool
	closeCh      chan struct{}
	loopFinished chan struct{}
}

// NewBufferedRecorder starts the report loop. Call Close to stop it.
func NewBufferedRecorder(reporter Reporter, opts ...RecorderOption) (*BufferedRecorder, error) {
	c := defaultRecorderConfig()
	for _, opt := range opts {
		opt(c)
	}

	var m *metrics.Metrics
	if c.registerer != nil {
		var err error
		if m, err = metrics.New(c.namespace, c.registerer); err != nil {
			return nil, err
		}
	}

	r := &BufferedRecorder{
		reporter:     reporter,
		cfg:          c,
		emit:         events.Emitter(c.onEvent),
		metrics:      m,
		closeCh:      make(chan struct{}),
		loopFinished: make(chan struct{}),
	}
	go r.reportLoop(c.clock.NewTicker(c.reportInterval))
	return r, nil
}

func (r *BufferedRecorder) RecordSpan(span RawSpan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.disabled || len(r.buffer) >= r.cfg.maxBufferedSpans {
		r.dropped++
		r.metrics.SpansDropped(1)
		return
	}
	r.buffer = append(r.buffer, span)
}

// Flush reports the buffered spans now.
func (r *BufferedRecorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		err := newErrClosed("recorder is closed")
		r.emit(events.NewEventFlushError(err, events.FlushErrorRecorderClosed))
		return err
	}
	return r.flush(ctx)
}

// Close stops the report loop after a final flush. Spans recorded after
// Close are dropped.
func (r *BufferedRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return newErrClosed("recorder is already closed")
	}
	r.closed = true
	r.mu.Unlock()

	close(r.closeCh)
	select {
	case <-r.loopFinished:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.flush(ctx)
}

func (r *BufferedRecorder) reportLoop(ticker timex.Ticker) {
	defer close(r.loopFinished)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			ctx, cancel := context.WithTimeout(context.Background(), r.cfg.reportTimeout)
			_ = r.flush(ctx)
			cancel()
		case <-r.closeCh:
			return
		}
	}
}

func (r *BufferedRecorder) flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	start := r.cfg.clock.Now()
	r.mu.Lock()
	if r.disabled {
		r.mu.Unlock()
		err := NewErrDisabled("reporting was disabled by the backend")
		r.emit(events.NewEventFlushError(err, events.FlushErrorDisabled))
		return err
	}
	batch := r.buffer
	dropped := r.dropped
	r.buffer = nil
	r.dropped = 0
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	err := r.reporter.Report(ctx, batch)
	if err != nil {
		r.metrics.SpansDropped(len(batch))
		state := events.FlushErrorTransport
		if _, ok := err.(ErrDisabled); ok {
			state = events.FlushErrorDisabled
			r.mu.Lock()
			r.disabled = true
			r.buffer = nil
			r.mu.Unlock()
		}
		dropErr := newErrDroppedSpans(dropped+len(batch), err)
		r.emit(events.NewEventFlushError(dropErr, state))
		return dropErr
	}

	r.metrics.SpansReported(len(batch))
	r.emit(events.NewEventStatusReport(start, r.cfg.clock.Now(), len(batch), dropped))
	return nil
}
