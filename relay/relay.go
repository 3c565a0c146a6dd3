// Package relay buffers diagnostic events posted by the engine callback until
// the orchestrator drains them on its own goroutine.
//
// The engine may invoke its callback from a thread other than the one that
// started the action. Host output is only safe from the caller's goroutine,
// so events are queued here and replayed after each action returns.
package relay

import (
	"sync"

	"github.com/justapithecus/msival/types"
)

// Stats is a point-in-time view of relay counters.
type Stats struct {
	// Posted is the total number of events accepted.
	Posted int64
	// Drained is the total number of events handed to the consumer.
	Drained int64
	// Drains is the number of Drain calls.
	Drains int64
	// HighWater is the largest queue depth observed.
	HighWater int
}

// Relay is an unbounded FIFO of diagnostic events.
// Post may be called from any goroutine; Drain belongs to the consumer.
// The zero value is ready to use.
type Relay struct {
	mu    sync.Mutex
	queue []types.DiagnosticEvent
	stats Stats
}

// New returns an empty relay.
func New() *Relay {
	return &Relay{}
}

// Post appends ev to the tail. It never blocks on the consumer and never
// drops. Posting an event without its required payload is a programming
// error and panics.
func (r *Relay) Post(ev types.DiagnosticEvent) {
	if !ev.Valid() {
		panic("relay: malformed diagnostic event of kind " + string(ev.Kind))
	}

	r.mu.Lock()
	r.queue = append(r.queue, ev)
	r.stats.Posted++
	if len(r.queue) > r.stats.HighWater {
		r.stats.HighWater = len(r.queue)
	}
	r.mu.Unlock()
}

// Drain removes and returns every queued event in posting order. Any Post
// that returned before Drain began is included. Returns nil when empty.
func (r *Relay) Drain() []types.DiagnosticEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Drains++
	if len(r.queue) == 0 {
		return nil
	}
	out := r.queue
	r.queue = nil
	r.stats.Drained += int64(len(out))
	return out
}

// Len returns the current queue depth.
func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Stats returns a snapshot of the relay counters.
func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
