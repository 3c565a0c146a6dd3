// Package engine defines the installer engine service the validation runtime
// drives. The engine is an opaque collaborator: it opens databases, merges
// rulesets, runs actions, and reports diagnostics through a callback that may
// be invoked on a thread other than the caller's.
package engine

import (
	"errors"
	"fmt"

	"github.com/justapithecus/msival/types"
)

// MessageType is the kind of diagnostic passed to a Callback.
// Values match the engine's INSTALLMESSAGE codes.
type MessageType int

// Message types.
const (
	MessageFatalExit   MessageType = 0x00000000
	MessageError       MessageType = 0x01000000
	MessageWarning     MessageType = 0x02000000
	MessageUser        MessageType = 0x03000000
	MessageInfo        MessageType = 0x04000000
	MessageActionStart MessageType = 0x08000000
	MessageActionData  MessageType = 0x09000000
	MessageProgress    MessageType = 0x0A000000
	MessageCommonData  MessageType = 0x0B000000
)

// Mask returns the event mask bit selecting this message type.
func (m MessageType) Mask() EventMask {
	return EventMask(1) << (uint32(m) >> 24)
}

// EventMask selects which message types reach the callback.
type EventMask uint32

// Event masks.
const (
	MaskNone      EventMask = 0
	MaskFatalExit           = EventMask(1) << (uint32(MessageFatalExit) >> 24)
	MaskError               = EventMask(1) << (uint32(MessageError) >> 24)
	MaskWarning             = EventMask(1) << (uint32(MessageWarning) >> 24)
	MaskUser                = EventMask(1) << (uint32(MessageUser) >> 24)
	MaskInfo                = EventMask(1) << (uint32(MessageInfo) >> 24)

	// MaskValidation is the set of messages validation listens to.
	MaskValidation = MaskFatalExit | MaskError | MaskWarning | MaskUser
)

// Has reports whether m selects message type t.
func (m EventMask) Has(t MessageType) bool {
	return m&t.Mask() != 0
}

// UILevel is the engine's internal UI level.
type UILevel int

// UI levels. Values match INSTALLUILEVEL.
const (
	UINoChange UILevel = 0
	UIDefault  UILevel = 1
	UISilent   UILevel = 2
	UIBasic    UILevel = 3
	UIReduced  UILevel = 4
	UIFull     UILevel = 5
)

// Result is a callback's reply to the engine.
type Result int

// Callback results. Values match the dialog ID* codes.
const (
	ResultError  Result = -1
	ResultNone   Result = 0
	ResultOK     Result = 1
	ResultCancel Result = 2
)

// Callback receives diagnostics. It may be invoked from a thread other than
// the one that started the engine operation, so implementations must not
// touch caller-thread-only state.
type Callback func(kind MessageType, rec *types.Record) Result

// OpenMode selects how a database is opened.
type OpenMode int

// Open modes.
const (
	OpenReadOnly OpenMode = 0
	OpenTransact OpenMode = 1
	OpenDirect   OpenMode = 2
)

// Engine is the installer engine service.
//
// Callback and UI level are engine-wide mutable state: callers must restore
// the previous values they receive and must not install callbacks
// concurrently on the same engine.
type Engine interface {
	// SetCallback installs cb for the message types in mask and returns the
	// previously installed callback and its mask.
	SetCallback(cb Callback, mask EventMask) (Callback, EventMask)

	// SetUILevel sets the internal UI level and returns the previous level.
	SetUILevel(level UILevel) UILevel

	// OpenDatabase opens the database at path.
	OpenDatabase(path string, mode OpenMode) (Database, error)

	// OpenSession opens an engine session bound to db.
	OpenSession(db Database) (Session, error)

	// DefaultRuleset locates the default validation ruleset, if installed.
	DefaultRuleset() (string, bool)

	// FormatMessage renders rec as localized text. Engines without message
	// tables may return the empty string.
	FormatMessage(rec *types.Record) string
}

// Database is an open installer database.
type Database interface {
	// Path returns the database file path.
	Path() string

	// ApplyTransform applies a transform or patch file.
	ApplyTransform(path string) error

	// IsTablePersistent reports whether table exists persistently.
	IsTablePersistent(table string) bool

	// QueryStrings runs a query and returns the first column of every row in
	// result order. Params bind to ? markers.
	QueryStrings(query string, params ...string) ([]string, error)

	// Execute runs a statement. Params bind to ? markers.
	Execute(statement string, params ...string) error

	// Merge merges the ruleset database at path. Returns an error wrapping
	// ErrMergeConflict when rows conflicted; the merge is still applied.
	Merge(rulesetPath string) error

	// Commit commits pending changes.
	Commit() error

	// Close releases the database handle.
	Close() error
}

// Session is an engine session bound to a database.
type Session interface {
	// DoAction runs a single named action synchronously. The engine may
	// invoke the installed callback during the call.
	DoAction(name string) error

	// Close releases the session.
	Close() error
}

// Sentinel errors.
var (
	// ErrMergeConflict indicates a ruleset merge produced row conflicts.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrUnsupported indicates the engine is not available on this platform.
	ErrUnsupported = errors.New("installer engine not supported on this platform")
)

// Error is a failure reported by the engine. Record is set when the engine
// supplied an extended error record.
type Error struct {
	// Op is the engine operation that failed, e.g. "DoAction".
	Op string
	// Code is the native error code.
	Code int
	// Record is the extended error record, if any.
	Record *types.Record
	// Err is an underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Record != nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Record.Format())
	case e.Err != nil:
		return fmt.Sprintf("%s: error %d: %v", e.Op, e.Code, e.Err)
	default:
		return fmt.Sprintf("%s: error %d", e.Op, e.Code)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
