package errors

import (
	stderrs "errors"
	"fmt"
	"testing"
)

func TestNewAndCode(t *testing.T) {
	err := New(ErrorCodePartitionRead, "boom")
	if got := CodeOf(err); got != ErrorCodePartitionRead {
		t.Fatalf("CodeOf = %v, want ErrorCodePartitionRead", got)
	}
	if err.Error() != "boom" {
		t.Fatalf("Error() = %q, want boom", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrs.New("disk gone")
	err := Wrap(cause, ErrorCodeStorage, "put failed")
	if !stderrs.Is(err, cause) {
		t.Fatalf("wrapped error lost its cause")
	}
	if got := err.Error(); got != "put failed: disk gone" {
		t.Fatalf("Error() = %q", got)
	}
	if Root(err) != cause {
		t.Fatalf("Root should return the deepest cause")
	}
}

func TestWrapfAndNewf(t *testing.T) {
	err := Newf(ErrorCodeRangeViolation, "popularity %d out of range", 140)
	if err.Error() != "popularity 140 out of range" {
		t.Fatalf("Newf message = %q", err.Error())
	}
	w := Wrapf(err, ErrorCodeValidation, "record %d", 3)
	if CodeOf(w) != ErrorCodeValidation {
		t.Fatalf("Wrapf code = %v", CodeOf(w))
	}
	// inner code still reachable through the chain
	var inner *Error
	if !stderrs.As(stderrs.Unwrap(w), &inner) || inner.Code() != ErrorCodeRangeViolation {
		t.Fatalf("inner code lost through wrap")
	}
}

func TestWrapIf(t *testing.T) {
	if WrapIf(nil, ErrorCodeStorage, "x") != nil {
		t.Fatalf("WrapIf(nil) should be nil")
	}
	if WrapIf(stderrs.New("e"), ErrorCodeStorage, "x") == nil {
		t.Fatalf("WrapIf(non-nil) should wrap")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if got := CodeOf(stderrs.New("plain")); got != ErrorCodeUnknown {
		t.Fatalf("CodeOf(plain) = %v, want Unknown", got)
	}
	if CodeOf(nil) != ErrorCodeUnknown {
		t.Fatalf("CodeOf(nil) should be Unknown")
	}
}

func TestIsCode(t *testing.T) {
	err := Configf("output root %q not writable", "/data")
	if !IsCode(err, ErrorCodeConfig) {
		t.Fatalf("IsCode(Config) = false")
	}
	if IsCode(err, ErrorCodeStorage) {
		t.Fatalf("IsCode(Storage) should be false")
	}
}

func TestWithFieldAndOp(t *testing.T) {
	base := New(ErrorCodeMissingField, "required field missing")
	withF := WithField(base, "track_id")
	e, ok := As(withF)
	if !ok || e.Field() != "track_id" {
		t.Fatalf("WithField did not attach field: %+v", e)
	}
	// copy-on-write: base untouched
	b, _ := As(base)
	if b.Field() != "" {
		t.Fatalf("WithField mutated the original")
	}

	withOp := WithOp(withF, "validate")
	e2, _ := As(withOp)
	if e2.Op() != "validate" {
		t.Fatalf("WithOp did not attach op")
	}

	// foreign errors pass through unchanged
	plain := stderrs.New("plain")
	if WithField(plain, "f") != plain {
		t.Fatalf("WithField should pass through foreign errors")
	}
}

func TestErrorCodeString(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want string
	}{
		{ErrorCodeUnknown, "unknown"},
		{ErrorCodeMalformedRecord, "malformed_record"},
		{ErrorCodeMissingField, "missing_field"},
		{ErrorCodeMalformedTimestamp, "malformed_timestamp"},
		{ErrorCodeRangeViolation, "range_violation"},
		{ErrorCodeInvalidIdentifier, "invalid_identifier"},
		{ErrorCodeSourceRead, "source_read"},
		{ErrorCodePartitionRead, "partition_read"},
		{ErrorCodePartitionWrite, "partition_write"},
		{ErrorCodeConfig, "config"},
		{ErrorCodeStorage, "storage"},
		{ErrorCode(9999), "unknown"},
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Fatalf("String(%d) = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailablef("ch briefly down")) {
		t.Fatalf("Unavailable should be retryable")
	}
	if !Retryable(Storagef("minio 503")) {
		t.Fatalf("Storage should be retryable")
	}
	if Retryable(Configf("bad root")) {
		t.Fatalf("Config should not be retryable")
	}
	if Retryable(New(ErrorCodeMissingField, "x")) {
		t.Fatalf("rejections should not be retryable")
	}
	if Retryable(fmt.Errorf("foreign")) {
		t.Fatalf("foreign errors should not be retryable")
	}
	// a partition wrap around a transient cause keeps the retry signal
	if !Retryable(Wrap(Storagef("minio 503"), ErrorCodePartitionWrite, "commit failed")) {
		t.Fatalf("transient cause under a partition wrap should be retryable")
	}
	// a terminal cause stays terminal through the same wrap
	if Retryable(Wrap(Configf("bad root"), ErrorCodePartitionWrite, "commit failed")) {
		t.Fatalf("config cause under a partition wrap should not be retryable")
	}
}

func TestIsRejection(t *testing.T) {
	rejections := []ErrorCode{
		ErrorCodeValidation, ErrorCodeMalformedRecord, ErrorCodeMissingField,
		ErrorCodeMalformedTimestamp, ErrorCodeRangeViolation, ErrorCodeInvalidIdentifier,
	}
	for _, c := range rejections {
		if !IsRejection(c) {
			t.Fatalf("IsRejection(%v) = false, want true", c)
		}
	}
	for _, c := range []ErrorCode{ErrorCodeUnknown, ErrorCodeConfig, ErrorCodePartitionWrite, ErrorCodeStorage} {
		if IsRejection(c) {
			t.Fatalf("IsRejection(%v) = true, want false", c)
		}
	}
}

func TestNilErrorReceiver(t *testing.T) {
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil receiver Error() = %q", e.Error())
	}
}
