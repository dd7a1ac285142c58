package tracer

// Sampler decides whether a new trace is recorded. It is only consulted when
// no upstream decision was propagated.
type Sampler interface {
	IsSampled(traceID uint64) bool
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func(traceID uint64) bool

func (f SamplerFunc) IsSampled(traceID uint64) bool {
	return f(traceID)
}

var (
	AlwaysSample Sampler = SamplerFunc(func(uint64) bool { return true })
	NeverSample  Sampler = SamplerFunc(func(uint64) bool { return false })
)

// NewBoundarySampler samples the given fraction of traces, deciding from the
// low bits of the trace id so that every tracer sharing the rate agrees.
// Rates outside (0, 1) collapse to NeverSample or AlwaysSample.
func NewBoundarySampler(rate float64) Sampler {
	switch {
	case rate <= 0:
		return NeverSample
	case rate >= 1:
		return AlwaysSample
	}
	boundary := uint64(rate * 10000)
	return SamplerFunc(func(traceID uint64) bool {
		return traceID%10000 < boundary
	})
}
