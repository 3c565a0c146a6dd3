package policy

import (
	"context"

	"github.com/justapithecus/msival/types"
)

// NoopPolicy accepts outputs without persisting them. It is the default
// when no storage is configured.
//
// Droppable outputs count as dropped; everything else counts as persisted
// so stats keep the same meaning as the persisting policies.
type NoopPolicy struct {
	stats *statsRecorder
}

// NewNoopPolicy creates a no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newStatsRecorder()}
}

// Ingest counts out and discards it.
func (p *NoopPolicy) Ingest(_ context.Context, out *types.Output) error {
	p.stats.update(func(s *Stats) {
		s.TotalOutputs++
		if out.IsDroppable() {
			s.OutputsDropped++
			s.DroppedByKind[out.Kind]++
		} else {
			s.OutputsPersisted++
		}
	})
	return nil
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.stats.update(func(s *Stats) { s.FlushCount++ })
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	return p.stats.snapshot()
}
