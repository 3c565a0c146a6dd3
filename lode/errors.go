package lode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/msival/types"
)

// Storage failure kinds. Use errors.Is(err, ErrXxx).
var (
	// ErrPermissionDenied: the fs root is not writable, or S3 refused the
	// request (AccessDenied, Forbidden).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound: the bucket, key, snapshot or fs root does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyWritten: lode never overwrites; a run id that already
	// persisted its summary sidecar cannot write it again.
	ErrAlreadyWritten = errors.New("already written")

	// ErrDiskFull: the fs backend ran out of space.
	ErrDiskFull = errors.New("no space left on device")

	// ErrTimeout: the context deadline passed or a network call timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrThrottled: S3 asked the client to slow down.
	ErrThrottled = errors.New("rate limited")

	// ErrAuth: S3 rejected the credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrNetwork: the S3 endpoint could not be reached.
	ErrNetwork = errors.New("network error")

	// ErrUnclassified is the kind of failures matching no other kind.
	ErrUnclassified = errors.New("storage error")
)

// Storage operations reported in StorageError.Op.
const (
	OpInit  = "init"
	OpWrite = "write"
	OpRead  = "read"
)

// StorageError is a classified failure to persist or read a validation
// record. It keeps the cause in the chain for errors.As.
type StorageError struct {
	// Kind is the classification sentinel, e.g. ErrPermissionDenied.
	Kind error
	// Op is OpInit, OpWrite or OpRead.
	Op string
	// Record is RecordKindOutput, RecordKindMetrics or a sidecar file name
	// such as summary.json. Empty for dataset-level failures.
	Record string
	// Item is the package whose outputs failed, when the batch has one.
	Item string
	// RunID is the run the record belongs to, if known.
	RunID string
	// Path is the dataset, object key or URI involved.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Record != "" {
		b.WriteString(" " + e.Record)
	}
	if e.Item != "" {
		b.WriteString(" for " + e.Item)
	}
	if e.RunID != "" {
		b.WriteString(" (run " + e.RunID + ")")
	}
	if e.Path != "" {
		b.WriteString(" at " + e.Path)
	}
	fmt.Fprintf(&b, ": %v: %v", e.Kind, e.Err)
	return b.String()
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Fields returns the error as structured log fields.
func (e *StorageError) Fields() map[string]any {
	f := map[string]any{
		"op":    e.Op,
		"kind":  e.Kind.Error(),
		"error": e.Err.Error(),
	}
	if e.Record != "" {
		f["record"] = e.Record
	}
	if e.Item != "" {
		f["item"] = e.Item
	}
	if e.RunID != "" {
		f["run_id"] = e.RunID
	}
	if e.Path != "" {
		f["path"] = e.Path
	}
	return f
}

// ErrorFields returns log fields for err, expanded when it is a StorageError.
func ErrorFields(err error) map[string]any {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Fields()
	}
	return map[string]any{"error": err.Error()}
}

// newStorageError classifies err. It returns nil for a nil err.
func newStorageError(op, record, runID, path string, err error) *StorageError {
	if err == nil {
		return nil
	}
	return &StorageError{
		Kind:   classifyError(err),
		Op:     op,
		Record: record,
		RunID:  runID,
		Path:   path,
		Err:    err,
	}
}

// classifyError maps the errors the fs and S3 stores actually return onto a
// kind. Typed checks only; store messages are not parsed.
func classifyError(err error) error {
	var (
		apiErr smithy.APIError
		netErr net.Error
	)
	switch {
	case errors.Is(err, lode.ErrPathExists):
		return ErrAlreadyWritten
	case errors.Is(err, lode.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOSPC):
		return ErrDiskFull
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &apiErr):
		return classifyAPICode(apiErr.ErrorCode())
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetwork
	default:
		return ErrUnclassified
	}
}

// classifyAPICode maps S3 error codes.
func classifyAPICode(code string) error {
	switch code {
	case "AccessDenied", "AllAccessDisabled", "Forbidden":
		return ErrPermissionDenied
	case "NoSuchBucket", "NoSuchKey", "NotFound":
		return ErrNotFound
	case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequests":
		return ErrThrottled
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "TokenRefreshRequired":
		return ErrAuth
	case "RequestTimeout":
		return ErrTimeout
	default:
		return ErrUnclassified
	}
}

// batchItem returns the item shared by every output, or "" for a mixed batch.
func batchItem(outputs []*types.Output) string {
	if len(outputs) == 0 {
		return ""
	}
	item := outputs[0].Item
	for _, o := range outputs[1:] {
		if o.Item != item {
			return ""
		}
	}
	return item
}
