package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/justapithecus/msival/types"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_RunContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&types.RunMeta{RunID: "run-1"}).WithOutput(&buf)

	l.Info("run started", map[string]any{"items": 2})
	l.WithItem("C:\\a.msi").Warn("default ICE ruleset not found", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["run_id"] != "run-1" || lines[0]["level"] != "info" || lines[0]["message"] != "run started" {
		t.Errorf("line 0 = %v", lines[0])
	}
	if _, ok := lines[0]["item"]; ok {
		t.Error("unscoped logger should not carry item")
	}
	if lines[1]["item"] != "C:\\a.msi" || lines[1]["run_id"] != "run-1" || lines[1]["level"] != "warn" {
		t.Errorf("line 1 = %v", lines[1])
	}
	fields, ok := lines[0]["fields"].(map[string]any)
	if !ok || fields["items"] != float64(2) {
		t.Errorf("fields = %v", lines[0]["fields"])
	}
}

func TestLogger_WithOutputKeepsItem(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&types.RunMeta{RunID: "r"}).WithItem("x.msi").WithOutput(&buf)
	l.Debug("copy", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["item"] != "x.msi" || lines[0]["run_id"] != "r" {
		t.Errorf("lines = %v", lines)
	}
}

func TestLogger_Sugar(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&types.RunMeta{RunID: "r"}).WithOutput(&buf).Sugar().With("k", "v").Errorf("failed %d", 3)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["message"] != "failed 3" || lines[0]["k"] != "v" {
		t.Errorf("lines = %v", lines)
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored", nil)
	l.WithItem("a").Error("ignored", map[string]any{"x": 1})
}
