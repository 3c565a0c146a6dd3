package policy

import (
	"context"

	"github.com/justapithecus/msival/types"
)

// StrictPolicy writes every output through to the sink as it arrives.
// Nothing is buffered or dropped; sink errors are returned to the caller.
type StrictPolicy struct {
	sink  Sink
	stats *statsRecorder
}

// NewStrictPolicy creates a strict policy writing to sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: newStatsRecorder()}
}

// Ingest writes out immediately as a batch of one.
func (p *StrictPolicy) Ingest(ctx context.Context, out *types.Output) error {
	p.stats.update(func(s *Stats) { s.TotalOutputs++ })

	if err := p.sink.WriteOutputs(ctx, []*types.Output{out}); err != nil {
		p.stats.update(func(s *Stats) { s.Errors++ })
		return err
	}

	p.stats.update(func(s *Stats) { s.OutputsPersisted++ })
	return nil
}

// Flush is a no-op; nothing is buffered.
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.stats.update(func(s *Stats) { s.FlushCount++ })
	return nil
}

// Close closes the underlying sink.
func (p *StrictPolicy) Close() error {
	return p.sink.Close()
}

// Stats returns policy statistics.
func (p *StrictPolicy) Stats() Stats {
	return p.stats.snapshot()
}
