package types

// EventKind discriminates a DiagnosticEvent.
type EventKind string

// Event kinds produced by the engine callback.
const (
	EventError       EventKind = "error"
	EventWarning     EventKind = "warning"
	EventInformation EventKind = "information"
)

// DiagnosticEvent is a diagnostic captured on the engine's callback thread
// and replayed on the orchestrator's thread.
//
// Exactly one payload is meaningful per kind:
//   - EventError: Record
//   - EventWarning: Text
//   - EventInformation: Text, with Path naming the package being validated
type DiagnosticEvent struct {
	Kind   EventKind
	Record *Record
	Text   string
	Path   string
}

// ErrorEvent returns an error event for rec.
func ErrorEvent(rec *Record) DiagnosticEvent {
	return DiagnosticEvent{Kind: EventError, Record: rec}
}

// WarningEvent returns a warning event.
func WarningEvent(text string) DiagnosticEvent {
	return DiagnosticEvent{Kind: EventWarning, Text: text}
}

// InformationEvent returns an information event annotated with the source path.
func InformationEvent(text, path string) DiagnosticEvent {
	return DiagnosticEvent{Kind: EventInformation, Text: text, Path: path}
}

// Valid reports whether the event carries the payload its kind requires.
func (e DiagnosticEvent) Valid() bool {
	switch e.Kind {
	case EventError:
		return e.Record != nil
	case EventWarning, EventInformation:
		return true
	default:
		return false
	}
}
