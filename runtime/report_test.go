package runtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justapithecus/msival/iox"
	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/policy"
	"github.com/justapithecus/msival/types"
)

func newTestRunResult() *RunResult {
	return &RunResult{
		RunMeta: &types.RunMeta{RunID: "run-001"},
		Items: []ItemResult{
			{
				Path:            `C:\pkgs\product.msi`,
				Status:          types.ItemValidated,
				ActionsSelected: 12,
				ActionsRun:      12,
				Warnings:        3,
				Messages:        4,
				Duration:        2 * time.Second,
			},
			{
				Path:            `C:\pkgs\module.msm`,
				Status:          types.ItemValidated,
				ActionsSelected: 10,
				ActionsRun:      10,
				Messages:        2,
				Suppressed:      7,
				Duration:        3 * time.Second,
			},
		},
		Outputs:  9,
		Duration: 5 * time.Second,
		PolicyStats: policy.Stats{
			TotalOutputs:     9,
			OutputsPersisted: 9,
			FlushCount:       3,
		},
	}
}

func newTestSnapshot() metrics.Snapshot {
	return metrics.Snapshot{
		ItemsStarted:          2,
		ItemsValidated:        2,
		ActionsExecuted:       22,
		WarningsDelivered:     3,
		MessagesDelivered:     6,
		InformationSuppressed: 7,
		RulesetsMerged:        2,
		LodeWriteSuccess:      3,
		Policy:                "strict",
		StorageBackend:        "fs",
		RunID:                 "run-001",
	}
}

func TestBuildRunReport_Success(t *testing.T) {
	report := BuildRunReport(newTestRunResult(), newTestSnapshot(), "strict")

	if report.RunID != "run-001" {
		t.Errorf("RunID = %q, want %q", report.RunID, "run-001")
	}
	if report.Outcome != types.OutcomeSuccess {
		t.Errorf("Outcome = %q, want %q", report.Outcome, types.OutcomeSuccess)
	}
	if report.ExitCode != ExitCodeSuccess {
		t.Errorf("ExitCode = %d, want 0", report.ExitCode)
	}
	if report.DurationMs != 5000 {
		t.Errorf("DurationMs = %d, want 5000", report.DurationMs)
	}
	if report.Outputs != 9 {
		t.Errorf("Outputs = %d, want 9", report.Outputs)
	}
	if len(report.Items) != 2 || report.Items[1].Suppressed != 7 || report.Items[0].DurationMs != 2000 {
		t.Errorf("Items = %+v", report.Items)
	}
	if report.Policy.Name != "strict" || report.Policy.OutputsPersisted != 9 || report.Policy.FlushCount != 3 {
		t.Errorf("Policy = %+v", report.Policy)
	}
	if report.Metrics.ActionsExecuted != 22 {
		t.Errorf("Metrics.ActionsExecuted = %d, want 22", report.Metrics.ActionsExecuted)
	}
	if report.Message != "" || report.StorageError != "" {
		t.Errorf("Message/StorageError = %q/%q, want empty", report.Message, report.StorageError)
	}
}

func TestBuildRunReport_ValidationErrors(t *testing.T) {
	result := newTestRunResult()
	result.Items[0].Errors = 2
	result.Items[0].ActionsFailed = 1

	report := BuildRunReport(result, newTestSnapshot(), "strict")

	if report.Outcome != types.OutcomeValidationErrors {
		t.Errorf("Outcome = %q, want %q", report.Outcome, types.OutcomeValidationErrors)
	}
	if report.ExitCode != ExitCodeValidationErrors {
		t.Errorf("ExitCode = %d, want 1", report.ExitCode)
	}
}

func TestBuildRunReport_PreparationFailure(t *testing.T) {
	result := newTestRunResult()
	result.Items[1] = ItemResult{
		Path:   `C:\pkgs\module.msm`,
		Status: types.ItemPreparationFailed,
		Err:    &PreparationError{Item: `C:\pkgs\module.msm`, Phase: PhaseOpen, Err: errors.New("not a database")},
	}

	report := BuildRunReport(result, newTestSnapshot(), "strict")

	if report.ExitCode != ExitCodePreparationFailed {
		t.Errorf("ExitCode = %d, want 2", report.ExitCode)
	}
	if got := report.Items[1].Error; got != `prepare C:\pkgs\module.msm: open: not a database` {
		t.Errorf("Items[1].Error = %q", got)
	}
}

func TestBuildRunReport_Fatal(t *testing.T) {
	result := newTestRunResult()
	result.Fatal = ErrRestoreFailed
	result.StorageErr = errors.New("disk full")

	report := BuildRunReport(result, newTestSnapshot(), "buffered")

	if report.Outcome != types.OutcomeFatal || report.ExitCode != ExitCodeFatal {
		t.Errorf("Outcome/ExitCode = %q/%d, want fatal/3", report.Outcome, report.ExitCode)
	}
	if report.Message != ErrRestoreFailed.Error() {
		t.Errorf("Message = %q", report.Message)
	}
	if report.StorageError != "disk full" {
		t.Errorf("StorageError = %q, want %q", report.StorageError, "disk full")
	}
}

func TestBuildRunReport_DroppedByKind(t *testing.T) {
	result := newTestRunResult()
	result.PolicyStats.OutputsDropped = 4
	result.PolicyStats.DroppedByKind = map[types.OutputKind]int64{types.OutputMessage: 4}

	report := BuildRunReport(result, newTestSnapshot(), "buffered")

	if report.Policy.OutputsDropped != 4 || report.Policy.DroppedByKind["message"] != 4 {
		t.Errorf("Policy = %+v", report.Policy)
	}
}

func TestWriteRunReport_File(t *testing.T) {
	report := BuildRunReport(newTestRunResult(), newTestSnapshot(), "strict")
	path := filepath.Join(t.TempDir(), "report.json")

	if err := WriteRunReport(report, path); err != nil {
		t.Fatalf("WriteRunReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("report should end with a newline")
	}

	var decoded RunReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal report: %v", err)
	}
	if decoded.RunID != "run-001" {
		t.Errorf("decoded RunID = %q, want %q", decoded.RunID, "run-001")
	}
	if decoded.Outcome != types.OutcomeSuccess {
		t.Errorf("decoded Outcome = %q, want %q", decoded.Outcome, types.OutcomeSuccess)
	}
}

func TestWriteRunReport_EmptyPath(t *testing.T) {
	if err := WriteRunReport(&RunReport{}, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWriteRunReport_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.json")
	if err := WriteRunReport(&RunReport{RunID: "run-001"}, path); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestWriteRunReportTo_Writer(t *testing.T) {
	report := BuildRunReport(newTestRunResult(), newTestSnapshot(), "strict")

	var buf bytes.Buffer
	if err := writeRunReportTo(report, &buf); err != nil {
		t.Fatalf("writeRunReportTo failed: %v", err)
	}

	var decoded RunReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(decoded.Items) != 2 {
		t.Errorf("decoded Items = %d, want 2", len(decoded.Items))
	}
}

func TestRunReport_JSONKeys(t *testing.T) {
	report := BuildRunReport(newTestRunResult(), newTestSnapshot(), "strict")

	data, err := MarshalRunReport(report)
	if err != nil {
		t.Fatalf("MarshalRunReport failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	requiredKeys := []string{"run_id", "outcome", "exit_code", "duration_ms", "outputs", "items", "policy", "metrics"}
	for _, key := range requiredKeys {
		if _, exists := raw[key]; !exists {
			t.Errorf("missing required key %q in report JSON", key)
		}
	}
	for _, key := range []string{"message", "storage_error"} {
		if _, exists := raw[key]; exists {
			t.Errorf("%s should be omitted when empty", key)
		}
	}

	policyObj, ok := raw["policy"].(map[string]any)
	if !ok {
		t.Fatal("policy is not an object")
	}
	for _, key := range []string{"name", "outputs_received", "outputs_persisted", "outputs_dropped", "flush_count"} {
		if _, exists := policyObj[key]; !exists {
			t.Errorf("missing required key %q in policy sub-object", key)
		}
	}

	items, ok := raw["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %v", raw["items"])
	}
	item, _ := items[0].(map[string]any)
	for _, key := range []string{"path", "status", "actions_selected", "actions_run", "errors", "warnings", "suppressed_conflicts"} {
		if _, exists := item[key]; !exists {
			t.Errorf("missing required key %q in item", key)
		}
	}
}

func TestWriteRunReport_Stderr(t *testing.T) {
	origStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stderr = w

	report := BuildRunReport(newTestRunResult(), newTestSnapshot(), "strict")
	writeErr := WriteRunReport(report, "-")

	// Restore stderr before any assertions so failures print correctly.
	iox.DiscardClose(w)
	os.Stderr = origStderr

	if writeErr != nil {
		t.Fatalf("WriteRunReport to stderr failed: %v", writeErr)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read from pipe: %v", err)
	}

	var decoded RunReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("stderr output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if decoded.RunID != "run-001" {
		t.Errorf("decoded RunID = %q, want %q", decoded.RunID, "run-001")
	}
}
