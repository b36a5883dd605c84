package task

import (
	"errors"
	"fmt"
)

// Stable error kinds for the calling layer to translate. Everything
// else surfaces as *UpstreamError, an opaque failure that leaks no
// store or cache detail.
var (
	// ErrNotFound indicates the task or a referenced user is absent or
	// soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller lacks permission for the
	// operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a malformed create or update request.
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError wraps a durable-store or user-directory failure with
// the operation that hit it.
type UpstreamError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream failure: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
