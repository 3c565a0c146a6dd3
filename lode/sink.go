// Package lode persists validation outputs and run metrics to a Lode dataset.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/types"
)

// DeriveDay computes the partition day from the run start time
// (YYYY-MM-DD, UTC).
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds Lode client configuration.
type Config struct {
	// Dataset is the Lode dataset ID; empty means DefaultDataset.
	Dataset string
	// Day is the partition day derived from the run start time.
	Day string
	// RunID is the run identifier partition.
	RunID string
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteOutputs writes a batch of outputs, preserving order.
	WriteOutputs(ctx context.Context, outputs []*types.Output) error

	// WriteMetrics writes the run metrics record.
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error

	// PutFile writes a run-scoped sidecar file.
	PutFile(ctx context.Context, filename string, data []byte) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a sink writing through client.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteOutputs implements policy.Sink.
func (s *Sink) WriteOutputs(ctx context.Context, outputs []*types.Output) error {
	return s.client.WriteOutputs(ctx, outputs)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

var _ policy.Sink = (*Sink)(nil)

// StubClient records writes without persisting.
type StubClient struct {
	mu sync.Mutex

	Outputs []*types.Output
	Metrics []metrics.Snapshot
	Files   map[string][]byte
	Closed  bool
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{Files: make(map[string][]byte)}
}

// WriteOutputs implements Client.
func (c *StubClient) WriteOutputs(_ context.Context, outputs []*types.Output) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Outputs = append(c.Outputs, outputs...)
	return nil
}

// WriteMetrics implements Client.
func (c *StubClient) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Metrics = append(c.Metrics, snap)
	return nil
}

// PutFile implements Client.
func (c *StubClient) PutFile(_ context.Context, filename string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Files[filename] = append([]byte(nil), data...)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

var _ Client = (*StubClient)(nil)
