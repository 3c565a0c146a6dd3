package types

// OutputKind discriminates an Output.
type OutputKind string

// Output kinds delivered to the caller.
const (
	// OutputError is a classified error: an engine error diagnostic or a
	// failed validation action.
	OutputError OutputKind = "error"
	// OutputWarning is a warning string.
	OutputWarning OutputKind = "warning"
	// OutputMessage is a structured ICE message.
	OutputMessage OutputKind = "message"
)

// Output is one diagnostic delivered to the caller, in completion order.
type Output struct {
	// RunID is the run the output belongs to.
	RunID string `msgpack:"run_id" json:"run_id" yaml:"run_id"`
	// Seq is the per-run delivery sequence, starting at 1.
	Seq int64 `msgpack:"seq" json:"seq" yaml:"seq"`
	// Item is the package path being validated.
	Item string `msgpack:"item" json:"item" yaml:"item"`
	// Action is the validation action that was running, if any.
	Action string `msgpack:"action,omitempty" json:"action,omitempty" yaml:"action,omitempty"`
	// Kind is the output discriminator.
	Kind OutputKind `msgpack:"kind" json:"kind" yaml:"kind"`
	// Ts is the delivery timestamp in RFC 3339 UTC.
	Ts string `msgpack:"ts" json:"ts" yaml:"ts"`
	// Error is set for OutputError.
	Error *ErrorRecord `msgpack:"error,omitempty" json:"error,omitempty" yaml:"error,omitempty"`
	// Warning is set for OutputWarning.
	Warning string `msgpack:"warning,omitempty" json:"warning,omitempty" yaml:"warning,omitempty"`
	// Message is set for OutputMessage.
	Message *IceMessage `msgpack:"message,omitempty" json:"message,omitempty" yaml:"message,omitempty"`
}

// IsDroppable reports whether a persistence policy may drop the output under
// pressure. Only pure information messages are droppable.
func (o *Output) IsDroppable() bool {
	return o.Kind == OutputMessage && o.Message != nil && o.Message.Type == IceInformation
}

// IsFailure reports whether the output represents a validation failure:
// an error output or an ICE error/failure message.
func (o *Output) IsFailure() bool {
	switch o.Kind {
	case OutputError:
		return true
	case OutputMessage:
		return o.Message != nil && (o.Message.Type == IceError || o.Message.Type == IceFailure)
	default:
		return false
	}
}

// Text returns a one-line rendering of the output payload.
func (o *Output) Text() string {
	switch o.Kind {
	case OutputError:
		if o.Error != nil {
			return o.Error.Message
		}
	case OutputWarning:
		return o.Warning
	case OutputMessage:
		if o.Message != nil {
			return o.Message.Description
		}
	}
	return ""
}
