package domain

import (
	"errors"
	"fmt"
)

// ValidationError means the request itself is malformed. Nothing was
// read or written before it is raised.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError means the input is valid but the requested slot cannot
// be booked (blocked date, closed weekday, overlapping booking).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failure from the database, the payment gateway
// or another collaborator. Not attributable to the caller.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

func Upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// SignatureError means a webhook payload failed signature verification
// and was rejected before any processing.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string { return fmt.Sprintf("signature verification failed: %v", e.Err) }
func (e *SignatureError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
