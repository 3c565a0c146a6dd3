package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/msival/types"
)

func TestNewRunCompletedEvent(t *testing.T) {
	summary := &types.RunSummary{
		RunID:   "run-001",
		Outcome: types.OutcomePreparationFailure,
		Items: []types.ItemSummary{
			{Path: "a.msi", Status: types.ItemValidated, Errors: 2, Warnings: 1, Messages: 4, SuppressedConflicts: 1},
			{Path: "b.msi", Status: types.ItemPreparationFailed, Errors: 1},
			{Path: "c.msi", Status: types.ItemCanceled},
		},
		Outputs:    8,
		DurationMs: 1234,
	}
	at := time.Date(2026, 10, 16, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))

	ev := NewRunCompletedEvent(summary, 2, "s3://bucket/msival", at)

	if ev.EventType != EventTypeRunCompleted || ev.ContractVersion != types.Version {
		t.Errorf("type/version = %s/%s", ev.EventType, ev.ContractVersion)
	}
	if ev.RunID != "run-001" || ev.Outcome != "preparation_failure" || ev.ExitCode != 2 {
		t.Errorf("run/outcome/exit = %s/%s/%d", ev.RunID, ev.Outcome, ev.ExitCode)
	}
	if ev.Items != 3 || ev.ItemsValidated != 1 || ev.ItemsFailed != 1 || ev.ItemsCanceled != 1 {
		t.Errorf("item counts = %d/%d/%d/%d", ev.Items, ev.ItemsValidated, ev.ItemsFailed, ev.ItemsCanceled)
	}
	if ev.Errors != 3 || ev.Warnings != 1 || ev.Messages != 4 || ev.ConflictsSuppressed != 1 {
		t.Errorf("output counts = %d/%d/%d/%d", ev.Errors, ev.Warnings, ev.Messages, ev.ConflictsSuppressed)
	}
	if ev.Timestamp != "2026-10-16T14:30:00Z" {
		t.Errorf("Timestamp = %q, want UTC", ev.Timestamp)
	}
	if ev.StoragePath != "s3://bucket/msival" || ev.Outputs != 8 || ev.DurationMs != 1234 {
		t.Errorf("storage/outputs/duration = %s/%d/%d", ev.StoragePath, ev.Outputs, ev.DurationMs)
	}
}

func TestRetry(t *testing.T) {
	errTransient := errors.New("transient")
	errPermanent := errors.New("permanent")
	isPermanent := func(err error) bool { return errors.Is(err, errPermanent) }

	tests := []struct {
		name      string
		retries   int
		results   []error
		wantErr   error
		wantCalls int
	}{
		{"first attempt", 3, []error{nil}, nil, 1},
		{"recovers", 3, []error{errTransient, errTransient, nil}, nil, 3},
		{"exhausted", 2, []error{errTransient}, errTransient, 3},
		{"permanent stops", 3, []error{errTransient, errPermanent}, errPermanent, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), "test", tt.retries, time.Millisecond, func(context.Context) error {
				i := calls
				calls++
				if i >= len(tt.results) {
					i = len(tt.results) - 1
				}
				return tt.results[i]
			}, isPermanent)

			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil) != (err == nil) {
				t.Errorf("Retry() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	calls := 0
	err := Retry(ctx, "test", 3, time.Millisecond, func(context.Context) error {
		calls++
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}
