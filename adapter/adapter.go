// Package adapter defines the notification boundary for completed runs.
//
// Adapters publish a run summary to downstream systems once a validation
// batch finishes. Publishing is best effort: callers log failures and never
// change the run outcome because of them.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/msival/types"
)

// EventTypeRunCompleted is the only event type published.
const EventTypeRunCompleted = "run_completed"

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"`
	RunID           string `json:"run_id"`
	Outcome         string `json:"outcome"`
	ExitCode        int    `json:"exit_code"`
	Message         string `json:"message,omitempty"`

	Items               int `json:"items"`
	ItemsValidated      int `json:"items_validated"`
	ItemsFailed         int `json:"items_failed"`
	ItemsCanceled       int `json:"items_canceled"`
	Errors              int `json:"errors"`
	Warnings            int `json:"warnings"`
	Messages            int `json:"messages"`
	ConflictsSuppressed int `json:"conflicts_suppressed"`

	Outputs     int64  `json:"outputs"`
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"`
	DurationMs  int64  `json:"duration_ms"`
}

// NewRunCompletedEvent builds the event for a finished run. exitCode is the
// process exit code the run maps to; storagePath is empty when outputs were
// not persisted.
func NewRunCompletedEvent(summary *types.RunSummary, exitCode int, storagePath string, at time.Time) *RunCompletedEvent {
	ev := &RunCompletedEvent{
		ContractVersion: types.Version,
		EventType:       EventTypeRunCompleted,
		RunID:           summary.RunID,
		Outcome:         string(summary.Outcome),
		ExitCode:        exitCode,
		Message:         summary.Message,
		Items:           len(summary.Items),
		Outputs:         summary.Outputs,
		StoragePath:     storagePath,
		Timestamp:       at.UTC().Format(time.RFC3339),
		DurationMs:      summary.DurationMs,
	}
	for _, it := range summary.Items {
		switch it.Status {
		case types.ItemValidated:
			ev.ItemsValidated++
		case types.ItemPreparationFailed:
			ev.ItemsFailed++
		case types.ItemCanceled:
			ev.ItemsCanceled++
		}
		ev.Errors += it.Errors
		ev.Warnings += it.Warnings
		ev.Messages += it.Messages
		ev.ConflictsSuppressed += it.SuppressedConflicts
	}
	return ev
}

// Adapter publishes run completion events to a downstream system.
type Adapter interface {
	// Publish sends a run completion event. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry. Each later retry doubles it.
const BaseBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with exponential backoff between
// calls. It stops early when attempt returns nil, when stop reports the
// error as permanent, or when ctx ends. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, backoff time.Duration, attempt func(context.Context) error, stop func(error) bool) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff << uint(i-1)):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if stop != nil && stop(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
