package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestRecord_FieldAccess(t *testing.T) {
	rec := NewRecord("", Int(1305), Str("C:\\pkg.msi"), Str("42"), Null())

	if got := rec.FieldCount(); got != 4 {
		t.Fatalf("FieldCount() = %d, want 4", got)
	}
	if got := rec.Integer(1); got != 1305 {
		t.Errorf("Integer(1) = %d, want 1305", got)
	}
	if got := rec.Integer(3); got != 42 {
		t.Errorf("Integer(3) = %d, want 42 (numeric string)", got)
	}
	if got := rec.Integer(2); got != NullInteger {
		t.Errorf("Integer(2) = %d, want NullInteger", got)
	}
	if got := rec.Integer(4); got != NullInteger {
		t.Errorf("Integer(4) = %d, want NullInteger (null)", got)
	}
	if got := rec.String(1); got != "1305" {
		t.Errorf("String(1) = %q, want 1305", got)
	}
	if got := rec.String(9); got != "" {
		t.Errorf("String(9) = %q, want empty past FieldCount", got)
	}
}

func TestRecord_NegativeIndexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative index")
		}
	}()
	NewRecord("x").Field(-1)
}

func TestRecord_NilSafe(t *testing.T) {
	var rec *Record
	if rec.FieldCount() != 0 {
		t.Error("nil record should have zero fields")
	}
	if rec.String(1) != "" {
		t.Error("nil record field should be empty")
	}
	if rec.Format() != "" {
		t.Error("nil record should format empty")
	}
}

func TestRecord_Format(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
		want string
	}{
		{
			name: "template substitution",
			rec:  NewRecord("Error [1]: cannot open [2].", Int(1305), Str("a.msi")),
			want: "Error 1305: cannot open a.msi.",
		},
		{
			name: "template with unknown bracket",
			rec:  NewRecord("[ProductName] [1]", Str("x")),
			want: "[ProductName] x",
		},
		{
			name: "no template lists fields",
			rec:  NewRecord("", Int(2), Str("b")),
			want: "1: 2 2: b",
		},
		{
			name: "missing field is empty",
			rec:  NewRecord("<[3]>", Str("a")),
			want: "<>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecord_Immutable(t *testing.T) {
	rec := NewRecord("", Str("a"))
	fields := rec.Fields()
	fields[1] = Str("mutated")
	if rec.String(1) != "a" {
		t.Error("Fields() must return a copy")
	}

	back := rec.Wire().Record()
	if back.String(1) != "a" || back.FieldCount() != 1 {
		t.Errorf("wire round trip lost fields: %v", back.Strings())
	}
}
