package lode

import (
	"testing"
	"time"

	"github.com/justapithecus/msival/metrics"
)

func TestPackageKey(t *testing.T) {
	tests := []struct {
		item string
		want string
	}{
		{`C:\pkgs\Product.MSI`, "product.msi"},
		{"/tmp/a/b.msm", "b.msm"},
		{"plain.msi", "plain.msi"},
		{"odd=name:x.msi", "odd_name_x.msi"},
		{"", "_unknown"},
		{`C:\dir\`, "_unknown"},
	}
	for _, tt := range tests {
		if got := PackageKey(tt.item); got != tt.want {
			t.Errorf("PackageKey(%q) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestToOutputRecordMap_WarningAndFallbackRunID(t *testing.T) {
	out := sampleOutputs()[0]
	out.RunID = ""
	m := toOutputRecordMap(out, testConfig())
	if m["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want config run id", m["run_id"])
	}
	msg, ok := m["message"].(map[string]any)
	if !ok || msg["type"] != "error" || msg["table"] != "File" {
		t.Errorf("message = %v", m["message"])
	}
}

func TestToMetricsRecordMap(t *testing.T) {
	snap := metrics.Snapshot{
		ItemsStarted:        2,
		ActionsExecuted:     40,
		ConflictsSuppressed: 1,
		DroppedByKind:       map[string]int64{"message": 3},
		Policy:              "buffered",
		StorageBackend:      "s3",
	}
	m := toMetricsRecordMap(snap, testConfig(), time.Date(2026, 10, 16, 1, 2, 3, 0, time.UTC))

	if m["record_kind"] != RecordKindMetrics || m["package"] != runPackage || m["run_id"] != "run-1" {
		t.Errorf("partition fields = %v/%v/%v", m["record_kind"], m["package"], m["run_id"])
	}
	if m["actions_executed"] != int64(40) || m["conflicts_suppressed"] != int64(1) {
		t.Errorf("counters = %v/%v", m["actions_executed"], m["conflicts_suppressed"])
	}
	if m["ts"] != "2026-10-16T01:02:03Z" {
		t.Errorf("ts = %v", m["ts"])
	}
	dropped, ok := m["dropped_by_kind"].(map[string]any)
	if !ok || dropped["message"] != int64(3) {
		t.Errorf("dropped_by_kind = %v", m["dropped_by_kind"])
	}
}
