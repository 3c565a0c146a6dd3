package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/justapithecus/msival/log"
	"github.com/justapithecus/msival/types"
)

// BufferedConfig configures a BufferedPolicy.
type BufferedConfig struct {
	// MaxOutputs is the maximum number of outputs held between flushes.
	MaxOutputs int

	// Logger is an optional logger for drop and flush observability.
	Logger *log.Logger
}

// DefaultBufferedConfig returns the default buffered configuration.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{MaxOutputs: 1000}
}

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: MaxOutputs must be positive")

// BufferedPolicy batches outputs and writes them on Flush.
//
// When the buffer is full:
//   - an incoming droppable output is dropped
//   - otherwise the oldest buffered droppable output is evicted
//   - with nothing droppable buffered, the buffer is flushed early
//
// Errors and warnings are never dropped. Outputs are written in ingest order.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu     sync.Mutex // guards buffer and stats
	buffer []*types.Output
	stats  Stats
}

// NewBufferedPolicy creates a buffered policy.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxOutputs <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buffer: make([]*types.Output, 0, min(config.MaxOutputs, 256)),
		stats:  Stats{DroppedByKind: make(map[types.OutputKind]int64)},
	}, nil
}

// Ingest buffers out, applying the drop rules when the buffer is full.
func (p *BufferedPolicy) Ingest(ctx context.Context, out *types.Output) error {
	p.mu.Lock()
	p.stats.TotalOutputs++

	if len(p.buffer) < p.config.MaxOutputs {
		p.append(out)
		p.mu.Unlock()
		return nil
	}

	if out.IsDroppable() {
		p.dropLocked(out, "buffer_full")
		p.mu.Unlock()
		return nil
	}

	if p.evictOldestDroppable() {
		p.append(out)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Only non-droppable outputs are buffered: write them now.
	if err := p.Flush(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	p.append(out)
	p.mu.Unlock()
	return nil
}

// append adds out to the buffer. Caller must hold mu.
func (p *BufferedPolicy) append(out *types.Output) {
	p.buffer = append(p.buffer, out)
	p.stats.Buffered = len(p.buffer)
}

// evictOldestDroppable removes the oldest droppable buffered output.
// Caller must hold mu.
func (p *BufferedPolicy) evictOldestDroppable() bool {
	for i, o := range p.buffer {
		if o.IsDroppable() {
			p.buffer = append(p.buffer[:i], p.buffer[i+1:]...)
			p.stats.Buffered = len(p.buffer)
			p.dropLocked(o, "evicted_for_non_droppable")
			return true
		}
	}
	return false
}

// dropLocked records a drop. Caller must hold mu.
func (p *BufferedPolicy) dropLocked(out *types.Output, reason string) {
	p.stats.OutputsDropped++
	p.stats.DroppedByKind[out.Kind]++
	if p.logger != nil {
		p.logger.Warn("output dropped", map[string]any{
			"kind":   string(out.Kind),
			"item":   out.Item,
			"reason": reason,
			"policy": NameBuffered,
		})
	}
}

// Flush writes all buffered outputs as one batch. On failure the buffer is
// kept intact so a later flush retries it.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.mu.Lock()
	p.stats.FlushCount++
	batch := p.buffer
	p.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := p.sink.WriteOutputs(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		if p.logger != nil {
			p.logger.Error("flush failed", map[string]any{
				"outputs": len(batch),
				"error":   err.Error(),
				"policy":  NameBuffered,
			})
		}
		return err
	}

	p.mu.Lock()
	p.stats.OutputsPersisted += int64(len(batch))
	// Outputs ingested during the write stay buffered.
	p.buffer = append(make([]*types.Output, 0, cap(p.buffer)), p.buffer[len(batch):]...)
	p.stats.Buffered = len(p.buffer)
	p.mu.Unlock()
	return nil
}

// Close flushes remaining outputs and closes the sink.
func (p *BufferedPolicy) Close() error {
	flushErr := p.Flush(context.Background())
	closeErr := p.sink.Close()
	return errors.Join(flushErr, closeErr)
}

// Stats returns a snapshot taken under the buffer lock.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.clone()
}
