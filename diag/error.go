package diag

import (
	"errors"
	"fmt"

	"github.com/justapithecus/msival/engine"
	"github.com/justapithecus/msival/types"
)

// ErrorID is the fully qualified error id of every installer error record.
const ErrorID = "InstallerError"

// MessageFormatter renders a record as user-facing text. Engines may supply a
// localized formatter; Record.Format is used otherwise.
type MessageFormatter func(*types.Record) string

// InstallerError is an engine diagnostic surfaced as a Go error.
// It is built either from a diagnostic record or from an engine error that
// may carry one.
type InstallerError struct {
	record   *types.Record
	err      error
	code     int
	category types.Category
	resource string
	format   MessageFormatter
}

// FromRecord wraps a diagnostic record.
func FromRecord(rec *types.Record, format MessageFormatter) *InstallerError {
	e := &InstallerError{record: rec, format: format}
	e.classify()
	return e
}

// FromError wraps err. When err is or wraps an *engine.Error carrying a
// record, the record drives classification; otherwise the category is
// Unspecified. Returns nil for a nil err.
func FromError(err error, format MessageFormatter) *InstallerError {
	if err == nil {
		return nil
	}
	var ie *InstallerError
	if errors.As(err, &ie) {
		return ie
	}
	e := &InstallerError{err: err, format: format}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		e.record = engErr.Record
		e.code = engErr.Code
	}
	e.classify()
	return e
}

func (e *InstallerError) classify() {
	if c := Code(e.record); c != 0 {
		e.code = c
	}
	if e.record == nil {
		e.category = types.CategoryUnspecified
		return
	}
	e.category, e.resource = Classify(e.record)
}

// Error returns the formatted message. Records are formatted with the
// configured formatter; otherwise the wrapped error's text is used.
func (e *InstallerError) Error() string {
	if e.record != nil {
		if e.format != nil {
			if msg := e.format(e.record); msg != "" {
				return msg
			}
		}
		if msg := e.record.Format(); msg != "" {
			return msg
		}
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("installer error %d", e.code)
}

// Unwrap returns the wrapped engine error, if any.
func (e *InstallerError) Unwrap() error {
	return e.err
}

// Category returns the classified category.
func (e *InstallerError) Category() types.Category {
	return e.category
}

// Resource returns the resource key, empty when none applies.
func (e *InstallerError) Resource() string {
	return e.resource
}

// Code returns the diagnostic code, or 0 when unknown.
func (e *InstallerError) Code() int {
	return e.code
}

// Record returns the diagnostic record, or nil when none was available.
func (e *InstallerError) Record() *types.Record {
	return e.record
}

// ErrorRecord returns the host-facing error record.
func (e *InstallerError) ErrorRecord() *types.ErrorRecord {
	return &types.ErrorRecord{
		FullyQualifiedErrorID: ErrorID,
		Category:              e.category,
		TargetName:            e.resource,
		Code:                  e.code,
		Message:               e.Error(),
		Fields:                e.record.Strings(),
	}
}
