package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/justapithecus/msival/metrics"
	"github.com/justapithecus/msival/types"
)

// RunReport is the structured JSON report written by --report and stored
// as the run's summary sidecar.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message,omitempty"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`
	Outputs    int64               `json:"outputs"`

	Items   []types.ItemSummary `json:"items"`
	Policy  *ReportPolicy       `json:"policy"`
	Metrics *metrics.Snapshot   `json:"metrics"`

	StorageError string `json:"storage_error,omitempty"`
}

// ReportPolicy holds policy stats in the report.
type ReportPolicy struct {
	Name             string           `json:"name"`
	OutputsReceived  int64            `json:"outputs_received"`
	OutputsPersisted int64            `json:"outputs_persisted"`
	OutputsDropped   int64            `json:"outputs_dropped"`
	DroppedByKind    map[string]int64 `json:"dropped_by_kind,omitempty"`
	FlushCount       int64            `json:"flush_count"`
}

// BuildRunReport composes a RunReport from a RunResult and metrics snapshot.
func BuildRunReport(result *RunResult, snap metrics.Snapshot, policyName string) *RunReport {
	summary := result.Summary()
	report := &RunReport{
		RunID:      summary.RunID,
		Outcome:    summary.Outcome,
		Message:    summary.Message,
		ExitCode:   ExitCode(summary.Outcome),
		DurationMs: summary.DurationMs,
		Outputs:    summary.Outputs,
		Items:      summary.Items,
		Policy: &ReportPolicy{
			Name:             policyName,
			OutputsReceived:  result.PolicyStats.TotalOutputs,
			OutputsPersisted: result.PolicyStats.OutputsPersisted,
			OutputsDropped:   result.PolicyStats.OutputsDropped,
			DroppedByKind:    result.PolicyStats.DroppedByKindStrings(),
			FlushCount:       result.PolicyStats.FlushCount,
		},
		Metrics: &snap,
	}
	if result.StorageErr != nil {
		report.StorageError = result.StorageErr.Error()
	}
	return report
}

// MarshalRunReport encodes the report as indented JSON with a trailing
// newline.
func MarshalRunReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := MarshalRunReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := MarshalRunReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
