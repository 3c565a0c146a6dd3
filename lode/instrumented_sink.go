package lode

import (
	"context"

	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/types"
)

// InstrumentedSink wraps a policy.Sink and counts write successes and
// failures on a metrics collector. Counts are per call, not per output.
type InstrumentedSink struct {
	inner     policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteOutputs delegates to the inner sink and records the result.
func (s *InstrumentedSink) WriteOutputs(ctx context.Context, outputs []*types.Output) error {
	err := s.inner.WriteOutputs(ctx, outputs)
	if err != nil {
		s.collector.IncLodeWriteFailure()
	} else {
		s.collector.IncLodeWriteSuccess()
	}
	return err
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

var _ policy.Sink = (*InstrumentedSink)(nil)
