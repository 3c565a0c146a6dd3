package runtime

import (
	"errors"
	"fmt"
)

// Phase names the preparation step that failed.
type Phase string

// Preparation phases, in execution order.
const (
	PhaseCopy      Phase = "copy"
	PhaseOpen      Phase = "open"
	PhaseTransform Phase = "transform"
	PhaseIdentity  Phase = "identity"
	PhaseMerge     Phase = "merge"
	PhaseCommit    Phase = "commit"
	PhaseSession   Phase = "session"
	PhaseSequence  Phase = "sequence"
)

// ErrRestoreFailed is returned when the engine's previous callback or UI
// level could not be restored. It is fatal for the run.
var ErrRestoreFailed = errors.New("failed to restore engine UI state")

// PreparationError is a fatal failure for one item. No action ran for the
// item; the batch continues with the next item.
type PreparationError struct {
	Item  string
	Phase Phase
	Err   error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("prepare %s: %s: %v", e.Item, e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PreparationError) Unwrap() error {
	return e.Err
}

// IsPreparationError reports whether err is or wraps a PreparationError.
func IsPreparationError(err error) bool {
	var prepErr *PreparationError
	return errors.As(err, &prepErr)
}
