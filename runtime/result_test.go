package runtime

import (
	"errors"
	"testing"

	"github.com/justapithecus/msival/types"
)

func TestRunResult_Outcome(t *testing.T) {
	validated := ItemResult{Status: types.ItemValidated}
	withErrors := ItemResult{Status: types.ItemValidated, Errors: 1}
	prepFailed := ItemResult{Status: types.ItemPreparationFailed}

	tests := []struct {
		name     string
		result   RunResult
		want     types.OutcomeStatus
		wantCode int
	}{
		{"empty", RunResult{}, types.OutcomeSuccess, ExitCodeSuccess},
		{"clean", RunResult{Items: []ItemResult{validated}}, types.OutcomeSuccess, ExitCodeSuccess},
		{"errors", RunResult{Items: []ItemResult{validated, withErrors}}, types.OutcomeValidationErrors, ExitCodeValidationErrors},
		{"preparation beats errors", RunResult{Items: []ItemResult{withErrors, prepFailed}}, types.OutcomePreparationFailure, ExitCodePreparationFailed},
		{"canceled beats preparation", RunResult{Items: []ItemResult{prepFailed}, Canceled: true}, types.OutcomeCanceled, ExitCodeFatal},
		{"fatal beats all", RunResult{Items: []ItemResult{prepFailed}, Canceled: true, Fatal: ErrRestoreFailed}, types.OutcomeFatal, ExitCodeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.Outcome()
			if got != tt.want {
				t.Errorf("Outcome() = %s, want %s", got, tt.want)
			}
			if code := ExitCode(got); code != tt.wantCode {
				t.Errorf("ExitCode(%s) = %d, want %d", got, code, tt.wantCode)
			}
		})
	}
}

func TestRunResult_Summary(t *testing.T) {
	result := &RunResult{
		RunMeta: &types.RunMeta{RunID: "run-7"},
		Items: []ItemResult{
			{Path: "a.msi", Status: types.ItemValidated, ActionsRun: 3, Warnings: 1},
			{Path: "b.msi", Status: types.ItemPreparationFailed, Err: errors.New("boom")},
		},
		Outputs: 2,
	}

	s := result.Summary()
	if s.RunID != "run-7" || s.Outcome != types.OutcomePreparationFailure || s.Outputs != 2 {
		t.Errorf("Summary() = %+v", s)
	}
	if len(s.Items) != 2 || s.Items[0].ActionsRun != 3 || s.Items[1].Error != "boom" {
		t.Errorf("Summary().Items = %+v", s.Items)
	}
	if s.Message != "" {
		t.Errorf("Message = %q, want empty", s.Message)
	}
}

func TestIsPreparationError(t *testing.T) {
	err := &PreparationError{Item: "a.msi", Phase: PhaseMerge, Err: errors.New("corrupt")}
	wrapped := errors.Join(errors.New("batch"), err)
	if !IsPreparationError(wrapped) {
		t.Error("IsPreparationError() = false for wrapped error")
	}
	if IsPreparationError(errors.New("other")) {
		t.Error("IsPreparationError() = true for unrelated error")
	}
	if got := err.Error(); got != "prepare a.msi: merge: corrupt" {
		t.Errorf("Error() = %q", got)
	}
}
