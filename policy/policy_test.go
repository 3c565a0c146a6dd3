package policy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/types"
)

func errorOutput(seq int64) *types.Output {
	return &types.Output{
		Seq:   seq,
		Kind:  types.OutputError,
		Error: &types.ErrorRecord{Code: 1305, Message: fmt.Sprintf("e%d", seq)},
	}
}

func warningOutput(seq int64) *types.Output {
	return &types.Output{Seq: seq, Kind: types.OutputWarning, Warning: fmt.Sprintf("w%d", seq)}
}

func infoOutput(seq int64) *types.Output {
	return &types.Output{
		Seq:     seq,
		Kind:    types.OutputMessage,
		Message: &types.IceMessage{Name: "ICE01", Type: types.IceInformation, Description: fmt.Sprintf("i%d", seq)},
	}
}

func iceErrorOutput(seq int64) *types.Output {
	return &types.Output{
		Seq:     seq,
		Kind:    types.OutputMessage,
		Message: &types.IceMessage{Name: "ICE03", Type: types.IceError, Description: "bad"},
	}
}

func seqs(outs []*types.Output) []int64 {
	s := make([]int64, len(outs))
	for i, o := range outs {
		s[i] = o.Seq
	}
	return s
}

func equalSeqs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Strict ---

func TestStrictPolicy_WritesThrough(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	for i := int64(1); i <= 3; i++ {
		if err := pol.Ingest(t.Context(), warningOutput(i)); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	if got := sink.BatchCount(); got != 3 {
		t.Errorf("batches = %d, want 3", got)
	}
	if got := seqs(sink.Outputs()); !equalSeqs(got, []int64{1, 2, 3}) {
		t.Errorf("written = %v", got)
	}
	stats := pol.Stats()
	if stats.TotalOutputs != 3 || stats.OutputsPersisted != 3 || stats.OutputsDropped != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStrictPolicy_SinkError(t *testing.T) {
	sink := policy.NewStubSink()
	sink.SetError(errors.New("disk full"))
	pol := policy.NewStrictPolicy(sink)

	if err := pol.Ingest(t.Context(), errorOutput(1)); err == nil {
		t.Fatal("Ingest() expected sink error")
	}
	stats := pol.Stats()
	if stats.Errors != 1 || stats.OutputsPersisted != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStrictPolicy_CloseClosesSink(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := pol.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !sink.IsClosed() {
		t.Error("sink not closed")
	}
	if pol.Stats().FlushCount != 1 {
		t.Errorf("FlushCount = %d, want 1", pol.Stats().FlushCount)
	}
}

// --- Noop ---

func TestNoopPolicy_Stats(t *testing.T) {
	pol := policy.NewNoopPolicy()
	outs := []*types.Output{errorOutput(1), warningOutput(2), infoOutput(3), iceErrorOutput(4), infoOutput(5)}
	for _, o := range outs {
		if err := pol.Ingest(t.Context(), o); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}

	stats := pol.Stats()
	if stats.TotalOutputs != 5 {
		t.Errorf("TotalOutputs = %d, want 5", stats.TotalOutputs)
	}
	if stats.OutputsPersisted != 3 {
		t.Errorf("OutputsPersisted = %d, want 3", stats.OutputsPersisted)
	}
	if stats.OutputsDropped != 2 || stats.DroppedByKind[types.OutputMessage] != 2 {
		t.Errorf("dropped = %d / %v", stats.OutputsDropped, stats.DroppedByKind)
	}
	if got := stats.DroppedByKindStrings()["message"]; got != 2 {
		t.Errorf("DroppedByKindStrings()[message] = %d, want 2", got)
	}
}

// --- Buffered ---

func mustBuffered(t *testing.T, sink policy.Sink, limit int) *policy.BufferedPolicy {
	t.Helper()
	pol, err := policy.NewBufferedPolicy(sink, policy.BufferedConfig{MaxOutputs: limit})
	if err != nil {
		t.Fatalf("NewBufferedPolicy() error = %v", err)
	}
	return pol
}

func TestBufferedPolicy_InvalidConfig(t *testing.T) {
	if _, err := policy.NewBufferedPolicy(policy.NewStubSink(), policy.BufferedConfig{}); !errors.Is(err, policy.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestBufferedPolicy_BuffersUntilFlush(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustBuffered(t, sink, 10)

	for i := int64(1); i <= 3; i++ {
		if err := pol.Ingest(t.Context(), warningOutput(i)); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
	}
	if len(sink.Outputs()) != 0 {
		t.Fatal("outputs written before flush")
	}
	if pol.Stats().Buffered != 3 {
		t.Errorf("Buffered = %d, want 3", pol.Stats().Buffered)
	}

	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if sink.BatchCount() != 1 || !equalSeqs(seqs(sink.Outputs()), []int64{1, 2, 3}) {
		t.Errorf("written = %v in %d batches", seqs(sink.Outputs()), sink.BatchCount())
	}
	stats := pol.Stats()
	if stats.OutputsPersisted != 3 || stats.Buffered != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBufferedPolicy_DropsIncomingDroppable(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustBuffered(t, sink, 2)

	_ = pol.Ingest(t.Context(), errorOutput(1))
	_ = pol.Ingest(t.Context(), warningOutput(2))
	if err := pol.Ingest(t.Context(), infoOutput(3)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	_ = pol.Flush(t.Context())

	if got := seqs(sink.Outputs()); !equalSeqs(got, []int64{1, 2}) {
		t.Errorf("written = %v, want [1 2]", got)
	}
	if pol.Stats().OutputsDropped != 1 {
		t.Errorf("OutputsDropped = %d, want 1", pol.Stats().OutputsDropped)
	}
}

func TestBufferedPolicy_EvictsOldestDroppable(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustBuffered(t, sink, 3)

	_ = pol.Ingest(t.Context(), infoOutput(1))
	_ = pol.Ingest(t.Context(), warningOutput(2))
	_ = pol.Ingest(t.Context(), infoOutput(3))
	if err := pol.Ingest(t.Context(), iceErrorOutput(4)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	_ = pol.Flush(t.Context())

	if got := seqs(sink.Outputs()); !equalSeqs(got, []int64{2, 3, 4}) {
		t.Errorf("written = %v, want [2 3 4]", got)
	}
	stats := pol.Stats()
	if stats.OutputsDropped != 1 || stats.DroppedByKind[types.OutputMessage] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBufferedPolicy_EarlyFlushWhenNothingDroppable(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustBuffered(t, sink, 2)

	for i := int64(1); i <= 5; i++ {
		if err := pol.Ingest(t.Context(), errorOutput(i)); err != nil {
			t.Fatalf("Ingest(%d) error = %v", i, err)
		}
	}
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if got := seqs(sink.Outputs()); !equalSeqs(got, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("written = %v", got)
	}
	stats := pol.Stats()
	if stats.OutputsDropped != 0 || stats.OutputsPersisted != 5 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBufferedPolicy_FlushFailureKeepsBuffer(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustBuffered(t, sink, 10)
	_ = pol.Ingest(t.Context(), errorOutput(1))

	sink.SetError(errors.New("unavailable"))
	if err := pol.Flush(t.Context()); err == nil {
		t.Fatal("Flush() expected error")
	}
	if pol.Stats().Buffered != 1 || pol.Stats().Errors != 1 {
		t.Errorf("stats after failure = %+v", pol.Stats())
	}

	sink.SetError(nil)
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("retry Flush() error = %v", err)
	}
	if got := seqs(sink.Outputs()); !equalSeqs(got, []int64{1}) {
		t.Errorf("written = %v", got)
	}
}

func TestBufferedPolicy_CloseFlushes(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustBuffered(t, sink, 10)
	_ = pol.Ingest(context.Background(), warningOutput(1))

	if err := pol.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(sink.Outputs()) != 1 || !sink.IsClosed() {
		t.Errorf("close did not flush and close: %d outputs, closed=%v", len(sink.Outputs()), sink.IsClosed())
	}
}

var (
	_ policy.Policy = (*policy.StrictPolicy)(nil)
	_ policy.Policy = (*policy.BufferedPolicy)(nil)
	_ policy.Policy = (*policy.NoopPolicy)(nil)
)
