// Package errors provides structured error types for rowkit. All errors
// include a category, code, message, and a recoverable flag so callers can
// decide between skip-and-continue and abort without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the taxonomy of the record layer.
type ErrorCategory string

const (
	// ErrCategorySchema covers schema-translation failures. They are fatal
	// at reader construction and never recovered.
	ErrCategorySchema ErrorCategory = "SCHEMA"

	// ErrCategoryRecord covers malformed-record failures. They are
	// recoverable at the granularity of a single record.
	ErrCategoryRecord ErrorCategory = "RECORD"

	// ErrCategoryIO covers failures reading the underlying byte source.
	ErrCategoryIO ErrorCategory = "IO"

	// ErrCategoryResource covers failures releasing readers and sources.
	ErrCategoryResource ErrorCategory = "RESOURCE"

	// ErrCategoryInternal covers unexpected conditions.
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Schema codes
	CodeUnsupportedSchema = "UNSUPPORTED_SCHEMA"
	CodeInvalidOverride   = "INVALID_OVERRIDE"

	// Record codes
	CodeMalformedRecord = "MALFORMED_RECORD"
	CodeCoercionFailed  = "COERCION_FAILED"

	// IO codes
	CodeReadFailed = "READ_FAILED"
	CodeOpenFailed = "OPEN_FAILED"

	// Resource codes
	CodeCloseFailed = "CLOSE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// RowkitError is the structured error type used throughout the system.
type RowkitError struct {
	Category    ErrorCategory
	Code        string
	Message     string
	Cause       error
	Recoverable bool
}

// Error returns a formatted error string.
func (e *RowkitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *RowkitError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *RowkitError) Is(target error) bool {
	var t *RowkitError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new RowkitError.
func New(category ErrorCategory, code, message string) *RowkitError {
	return &RowkitError{
		Category:    category,
		Code:        code,
		Message:     message,
		Recoverable: isRecoverable(category),
	}
}

// Wrap creates a new RowkitError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *RowkitError {
	return &RowkitError{
		Category:    category,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: isRecoverable(category),
	}
}

// IsRecoverable checks whether an error (or its chain) can be recovered by
// skipping the offending record.
func IsRecoverable(err error) bool {
	var re *RowkitError
	if errors.As(err, &re) {
		return re.Recoverable
	}
	return false
}

// IsMalformedRecord reports whether the error chain contains a
// per-record malformed-record failure.
func IsMalformedRecord(err error) bool {
	var re *RowkitError
	if errors.As(err, &re) {
		return re.Category == ErrCategoryRecord
	}
	return false
}

// GetCategory extracts the error category from an error chain. Returns
// empty string if the error is not a RowkitError.
func GetCategory(err error) ErrorCategory {
	var re *RowkitError
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// Only record-level failures are recoverable; everything else either fails
// the reader outright or ends the stream.
func isRecoverable(category ErrorCategory) bool {
	return category == ErrCategoryRecord
}

// Convenience constructors for common errors.

func NewSchemaError(code, message string, cause error) *RowkitError {
	return Wrap(ErrCategorySchema, code, message, cause)
}

func NewMalformedRecordError(message string, cause error) *RowkitError {
	return Wrap(ErrCategoryRecord, CodeMalformedRecord, message, cause)
}

func NewCoercionError(message string, cause error) *RowkitError {
	return Wrap(ErrCategoryRecord, CodeCoercionFailed, message, cause)
}

func NewIOError(code, message string, cause error) *RowkitError {
	return Wrap(ErrCategoryIO, code, message, cause)
}

func NewResourceError(message string, cause error) *RowkitError {
	return Wrap(ErrCategoryResource, CodeCloseFailed, message, cause)
}

func NewInternalError(message string, cause error) *RowkitError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
