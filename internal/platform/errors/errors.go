// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode defines supported error codes used across services
// Values are stable for report compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for recovered panics
	ErrorCodePanic

	// ErrorCodeUnavailable is for transient errors where retry may succeed
	ErrorCodeUnavailable

	// ErrorCodeConflict is for concurrent-use conflicts (e.g. a run already in progress)
	ErrorCodeConflict

	// ErrorCodeNotFound is for missing objects or partitions
	ErrorCodeNotFound

	// ErrorCodeConfig is for run-level configuration failures; these abort
	// the run before any partition is touched
	ErrorCodeConfig

	// ErrorCodeValidation is the generic record-rejection code
	ErrorCodeValidation

	// ErrorCodeMalformedRecord is for lines that do not decode as JSON
	ErrorCodeMalformedRecord

	// ErrorCodeMissingField is for records missing a required field
	ErrorCodeMissingField

	// ErrorCodeMalformedTimestamp is for unparseable playback timestamps
	ErrorCodeMalformedTimestamp

	// ErrorCodeRangeViolation is for numeric fields outside declared ranges
	ErrorCodeRangeViolation

	// ErrorCodeInvalidIdentifier is for empty or unusable track identifiers
	ErrorCodeInvalidIdentifier

	// ErrorCodeSourceRead is for failures reading raw input objects
	ErrorCodeSourceRead

	// ErrorCodePartitionRead is for failures reading existing partition content
	ErrorCodePartitionRead

	// ErrorCodePartitionWrite is for failed partition replacements; prior
	// partition content is guaranteed untouched
	ErrorCodePartitionWrite

	// ErrorCodeStorage is for backend storage errors without a finer class
	ErrorCodeStorage
)

// String returns the stable snake_case name used in reports and logs
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodePanic:
		return "panic"
	case ErrorCodeUnavailable:
		return "unavailable"
	case ErrorCodeConflict:
		return "conflict"
	case ErrorCodeNotFound:
		return "not_found"
	case ErrorCodeConfig:
		return "config"
	case ErrorCodeValidation:
		return "validation"
	case ErrorCodeMalformedRecord:
		return "malformed_record"
	case ErrorCodeMissingField:
		return "missing_field"
	case ErrorCodeMalformedTimestamp:
		return "malformed_timestamp"
	case ErrorCodeRangeViolation:
		return "range_violation"
	case ErrorCodeInvalidIdentifier:
		return "invalid_identifier"
	case ErrorCodeSourceRead:
		return "source_read"
	case ErrorCodePartitionRead:
		return "partition_read"
	case ErrorCodePartitionWrite:
		return "partition_write"
	case ErrorCodeStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// field is optional (for validation); op is optional operation tag
// orig is the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil (helper for 1-liners)
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// Configf returns a run-level configuration error
func Configf(format string, a ...any) error { return Newf(ErrorCodeConfig, format, a...) }

// Conflictf returns a conflict error
func Conflictf(format string, a ...any) error { return Newf(ErrorCodeConflict, format, a...) }

// Storagef returns a backend storage error
func Storagef(format string, a ...any) error { return Newf(ErrorCodeStorage, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }
