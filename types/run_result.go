package types

// ItemStatus is the final status of one validated package.
type ItemStatus string

const (
	// ItemValidated indicates every selected action ran (individual actions
	// may still have reported errors).
	ItemValidated ItemStatus = "validated"
	// ItemPreparationFailed indicates the package could not be prepared and
	// no action ran.
	ItemPreparationFailed ItemStatus = "preparation_failed"
	// ItemCanceled indicates a stop request interrupted the package.
	ItemCanceled ItemStatus = "canceled"
)

// OutcomeStatus is the final status of a run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates no error outputs and no preparation failures.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeValidationErrors indicates at least one error output.
	OutcomeValidationErrors OutcomeStatus = "validation_errors"
	// OutcomePreparationFailure indicates at least one item failed preparation.
	OutcomePreparationFailure OutcomeStatus = "preparation_failure"
	// OutcomeFatal indicates the run itself failed, e.g. UI state could not
	// be restored or the engine was unavailable.
	OutcomeFatal OutcomeStatus = "fatal"
	// OutcomeCanceled indicates a stop request ended the run early.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// ItemSummary is the serializable per-package result.
type ItemSummary struct {
	Path                string     `msgpack:"path" json:"path" yaml:"path"`
	Status              ItemStatus `msgpack:"status" json:"status" yaml:"status"`
	ActionsSelected     int        `msgpack:"actions_selected" json:"actions_selected" yaml:"actions_selected"`
	ActionsRun          int        `msgpack:"actions_run" json:"actions_run" yaml:"actions_run"`
	ActionsFailed       int        `msgpack:"actions_failed" json:"actions_failed" yaml:"actions_failed"`
	Errors              int        `msgpack:"errors" json:"errors" yaml:"errors"`
	Warnings            int        `msgpack:"warnings" json:"warnings" yaml:"warnings"`
	Messages            int        `msgpack:"messages" json:"messages" yaml:"messages"`
	Suppressed          int        `msgpack:"suppressed" json:"suppressed" yaml:"suppressed"`
	SuppressedConflicts int        `msgpack:"suppressed_conflicts" json:"suppressed_conflicts" yaml:"suppressed_conflicts"`
	Error               string     `msgpack:"error,omitempty" json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs          int64      `msgpack:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
}

// RunSummary is the serializable run result.
type RunSummary struct {
	RunID      string        `msgpack:"run_id" json:"run_id" yaml:"run_id"`
	Outcome    OutcomeStatus `msgpack:"outcome" json:"outcome" yaml:"outcome"`
	Message    string        `msgpack:"message,omitempty" json:"message,omitempty" yaml:"message,omitempty"`
	Items      []ItemSummary `msgpack:"items" json:"items" yaml:"items"`
	Outputs    int64         `msgpack:"outputs" json:"outputs" yaml:"outputs"`
	DurationMs int64         `msgpack:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
}
