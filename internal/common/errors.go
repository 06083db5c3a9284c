package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy for the extraction/merge core.
var (
	// ErrNormalization marks malformed numeric or code text. The affected
	// field is left blank; the row is retained.
	ErrNormalization = errors.New("normalization failed")
	// ErrExtractionEmpty marks a strategy/page that yielded nothing. It
	// triggers fallback to the next strategy and is never surfaced as a
	// pipeline failure.
	ErrExtractionEmpty = errors.New("extraction yielded no rows")
	// ErrRemoteTransient marks rate limits, 5xx responses and timeouts.
	// Eligible for retry.
	ErrRemoteTransient = errors.New("transient remote failure")
	// ErrRemotePermanent marks auth or malformed-request failures. Aborts
	// the current document; other documents in the batch continue.
	ErrRemotePermanent = errors.New("permanent remote failure")
	// ErrMergeConflict marks concurrent writers on the same (brand, year,
	// month) triple. The single-writer rule serializes these away; seeing
	// one is a defect.
	ErrMergeConflict = errors.New("merge conflict")

	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NormalizationError wraps err (or a plain message) into the
// normalization taxonomy so callers can blank the field and move on.
func NormalizationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNormalization, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err belongs to the retryable class.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteTransient)
}

// IsPermanent reports whether err aborts the current document.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRemotePermanent)
}
