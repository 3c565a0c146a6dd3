package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestDiagnosticEvent_Valid(t *testing.T) {
	tests := []struct {
		name  string
		event DiagnosticEvent
		want  bool
	}{
		{"error with record", ErrorEvent(NewErrorRecord(1305, "C:\\a.msi")), true},
		{"error without record", DiagnosticEvent{Kind: EventError}, false},
		{"warning", WarningEvent("careful"), true},
		{"information", InformationEvent("ICE03\t3\tok", "a.msi"), true},
		{"unknown kind", DiagnosticEvent{Kind: "debug"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutput_Droppable(t *testing.T) {
	tests := []struct {
		name      string
		output    Output
		droppable bool
		failure   bool
	}{
		{"error", Output{Kind: OutputError, Error: &ErrorRecord{}}, false, true},
		{"warning", Output{Kind: OutputWarning, Warning: "w"}, false, false},
		{"ice information", Output{Kind: OutputMessage, Message: &IceMessage{Type: IceInformation}}, true, false},
		{"ice warning", Output{Kind: OutputMessage, Message: &IceMessage{Type: IceWarning}}, false, false},
		{"ice error", Output{Kind: OutputMessage, Message: &IceMessage{Type: IceError}}, false, true},
		{"ice failure", Output{Kind: OutputMessage, Message: &IceMessage{Type: IceFailure}}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.output.IsDroppable(); got != tt.droppable {
				t.Errorf("IsDroppable() = %v, want %v", got, tt.droppable)
			}
			if got := tt.output.IsFailure(); got != tt.failure {
				t.Errorf("IsFailure() = %v, want %v", got, tt.failure)
			}
		})
	}
}

func TestCategory_TextRoundTrip(t *testing.T) {
	for _, c := range []Category{
		CategoryUnspecified, CategoryOpenError, CategoryInvalidData, CategoryObjectNotFound,
		CategoryPermissionDenied, CategoryReadError, CategoryWriteError,
	} {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", c, err)
		}
		var got Category
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != c {
			t.Errorf("round trip %v = %v", c, got)
		}
	}

	var c Category
	if err := c.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error for unknown category")
	}
}
