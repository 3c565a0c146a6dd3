package runtime

import (
	"time"

	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/types"
)

// Process exit codes for a run outcome.
const (
	ExitCodeSuccess           = 0 // every item validated, no error outputs
	ExitCodeValidationErrors  = 1 // at least one error output
	ExitCodePreparationFailed = 2 // at least one item failed preparation
	ExitCodeFatal             = 3 // run did not complete
)

// ItemResult is the result of validating one package.
type ItemResult struct {
	Path   string
	Status types.ItemStatus

	ActionsSelected int
	ActionsRun      int
	ActionsFailed   int

	// Errors counts failure outputs: error outputs and ICE error or
	// failure messages.
	Errors int
	// Warnings counts warning outputs.
	Warnings int
	// Messages counts delivered ICE messages.
	Messages int
	// Suppressed counts information messages withheld without verbose.
	Suppressed int
	// SuppressedConflicts counts ruleset merges that reported conflicts.
	SuppressedConflicts int

	// Err is the preparation error, if any.
	Err      error
	Duration time.Duration
}

// Summary returns the serializable form of the item result.
func (r *ItemResult) Summary() types.ItemSummary {
	s := types.ItemSummary{
		Path:                r.Path,
		Status:              r.Status,
		ActionsSelected:     r.ActionsSelected,
		ActionsRun:          r.ActionsRun,
		ActionsFailed:       r.ActionsFailed,
		Errors:              r.Errors,
		Warnings:            r.Warnings,
		Messages:            r.Messages,
		Suppressed:          r.Suppressed,
		SuppressedConflicts: r.SuppressedConflicts,
		DurationMs:          r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// RunResult is the result of a validation run.
type RunResult struct {
	RunMeta *types.RunMeta
	Items   []ItemResult
	// Outputs is the number of delivered outputs.
	Outputs  int64
	Duration time.Duration
	// Canceled is set when a stop request ended the run early.
	Canceled bool
	// Fatal is set when the run itself failed.
	Fatal error
	// StorageErr is the first persistence failure, if any. Persistence
	// failures do not change the outcome.
	StorageErr  error
	PolicyStats policy.Stats
}

// Outcome classifies the run. Fatal outranks cancellation, which outranks
// preparation failures, which outrank validation errors.
func (r *RunResult) Outcome() types.OutcomeStatus {
	switch {
	case r.Fatal != nil:
		return types.OutcomeFatal
	case r.Canceled:
		return types.OutcomeCanceled
	}
	errorsSeen := false
	for i := range r.Items {
		if r.Items[i].Status == types.ItemPreparationFailed {
			return types.OutcomePreparationFailure
		}
		if r.Items[i].Errors > 0 {
			errorsSeen = true
		}
	}
	if errorsSeen {
		return types.OutcomeValidationErrors
	}
	return types.OutcomeSuccess
}

// Summary returns the serializable run result.
func (r *RunResult) Summary() *types.RunSummary {
	s := &types.RunSummary{
		Outcome:    r.Outcome(),
		Items:      make([]types.ItemSummary, 0, len(r.Items)),
		Outputs:    r.Outputs,
		DurationMs: r.Duration.Milliseconds(),
	}
	if r.RunMeta != nil {
		s.RunID = r.RunMeta.RunID
	}
	if r.Fatal != nil {
		s.Message = r.Fatal.Error()
	}
	for i := range r.Items {
		s.Items = append(s.Items, r.Items[i].Summary())
	}
	return s
}

// ExitCode maps an outcome to a process exit code.
func ExitCode(outcome types.OutcomeStatus) int {
	switch outcome {
	case types.OutcomeSuccess:
		return ExitCodeSuccess
	case types.OutcomeValidationErrors:
		return ExitCodeValidationErrors
	case types.OutcomePreparationFailure:
		return ExitCodePreparationFailed
	default:
		return ExitCodeFatal
	}
}
