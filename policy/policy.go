// Package policy controls how delivered validation outputs are persisted.
package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/msival/types"
)

// Policy defines the persistence policy interface.
//
// Policies may drop droppable outputs (pure information messages) under
// pressure. Errors and warnings are never dropped, and a policy never alters
// an output.
type Policy interface {
	// Ingest handles one delivered output.
	Ingest(ctx context.Context, out *types.Output) error

	// Flush persists any buffered outputs. Called at the end of every
	// input item and on run termination.
	Flush(ctx context.Context) error

	// Close releases policy resources.
	Close() error

	// Stats returns a consistent snapshot of policy counters.
	Stats() Stats
}

// Stats represents policy observability counters.
type Stats struct {
	// TotalOutputs is the number of outputs received.
	TotalOutputs int64
	// OutputsPersisted is the number of outputs written to the sink.
	OutputsPersisted int64
	// OutputsDropped is the number of outputs dropped.
	OutputsDropped int64
	// DroppedByKind maps output kinds to drop counts.
	DroppedByKind map[types.OutputKind]int64
	// Buffered is the current number of buffered outputs.
	Buffered int
	// FlushCount is the number of flush operations.
	FlushCount int64
	// Errors is the count of sink failures.
	Errors int64
}

// DroppedByKindStrings returns DroppedByKind keyed by plain strings.
func (s Stats) DroppedByKindStrings() map[string]int64 {
	out := make(map[string]int64, len(s.DroppedByKind))
	for k, v := range s.DroppedByKind {
		out[string(k)] = v
	}
	return out
}

func (s Stats) clone() Stats {
	c := s
	c.DroppedByKind = make(map[types.OutputKind]int64, len(s.DroppedByKind))
	for k, v := range s.DroppedByKind {
		c.DroppedByKind[k] = v
	}
	return c
}

// statsRecorder guards a Stats value for policies without their own buffer
// lock.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{stats: Stats{DroppedByKind: make(map[types.OutputKind]int64)}}
}

func (r *statsRecorder) update(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.clone()
}

// Name values accepted by New.
const (
	NameStrict   = "strict"
	NameBuffered = "buffered"
	NameNoop     = "noop"
)
