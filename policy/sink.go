package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/msival/types"
)

// Sink abstracts persistence for policies.
type Sink interface {
	// WriteOutputs persists a batch of outputs, preserving order.
	WriteOutputs(ctx context.Context, outputs []*types.Output) error

	// Close releases any resources held by the sink.
	Close() error
}

// StubSink is a test sink that records writes without persisting.
type StubSink struct {
	mu sync.Mutex

	// Written stores all written outputs in order.
	Written []*types.Output
	// Batches is the number of WriteOutputs calls that succeeded.
	Batches int64
	// Closed indicates whether Close was called.
	Closed bool
	// ErrorOnWrite, if non-nil, is returned by WriteOutputs.
	ErrorOnWrite error
}

// NewStubSink creates a new stub sink.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteOutputs records the outputs.
func (s *StubSink) WriteOutputs(_ context.Context, outputs []*types.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		return s.ErrorOnWrite
	}
	s.Batches++
	s.Written = append(s.Written, outputs...)
	return nil
}

// Close marks the sink as closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// SetError sets the error returned by subsequent writes.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ErrorOnWrite = err
}

// Outputs returns a copy of the written outputs.
func (s *StubSink) Outputs() []*types.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.Output(nil), s.Written...)
}

// BatchCount returns the number of successful writes.
func (s *StubSink) BatchCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Batches
}

// IsClosed reports whether Close was called.
func (s *StubSink) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closed
}
