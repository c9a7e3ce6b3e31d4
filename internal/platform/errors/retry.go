package errors

import stderrs "errors"

// Retry and rejection semantics for the pipeline error taxonomy

// Retryable reports whether the error is worth retrying. Only transient
// storage classes qualify; rejection and configuration errors never do.
// The whole chain is inspected so a partition-level wrap around a
// transient storage failure stays retryable
func Retryable(err error) bool {
	for e := err; e != nil; e = stderrs.Unwrap(e) {
		if pe, ok := e.(*Error); ok {
			switch pe.code {
			case ErrorCodeUnavailable, ErrorCodeStorage:
				return true
			case ErrorCodeConfig, ErrorCodeNotFound, ErrorCodeConflict:
				return false
			}
		}
	}
	return false
}

// IsRejection reports whether code is a per-record validation rejection.
// Rejections are recorded and skipped; they never abort a batch
func IsRejection(code ErrorCode) bool {
	switch code {
	case ErrorCodeValidation,
		ErrorCodeMalformedRecord,
		ErrorCodeMissingField,
		ErrorCodeMalformedTimestamp,
		ErrorCodeRangeViolation,
		ErrorCodeInvalidIdentifier:
		return true
	default:
		return false
	}
}
