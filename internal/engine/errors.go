package engine

import (
	"errors"
	"fmt"
)

// RunError aborts a repair run. Non-convergence is not an error; it is the
// Exhausted state of the report.
type RunError struct {
	// Code identifies the failing stage.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// Pass is the pass that failed, starting at 1. Zero means before the
	// first pass.
	Pass int

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeStoreLoad indicates the store could not be read.
	ErrCodeStoreLoad RunErrorCode = "STORE_LOAD"

	// ErrCodeStoreWrite indicates a delta or the manifest could not be
	// written.
	ErrCodeStoreWrite RunErrorCode = "STORE_WRITE"

	// ErrCodeSynthesis indicates a synthesis stage failed, usually a broken
	// statement template.
	ErrCodeSynthesis RunErrorCode = "SYNTHESIS"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Pass > 0 {
		msg = fmt.Sprintf("%s (pass=%d)", msg, e.Pass)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is a load or write failure.
func IsStoreError(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStoreLoad || re.Code == ErrCodeStoreWrite
	}
	return false
}

// IsSynthesisError reports whether err came from the synthesizer.
func IsSynthesisError(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeSynthesis
	}
	return false
}

// NewLoadError wraps a failed store read.
func NewLoadError(pass int, err error) *RunError {
	return &RunError{Code: ErrCodeStoreLoad, Message: "load graph", Pass: pass, Err: err}
}

// NewWriteError wraps a failed store write.
func NewWriteError(pass int, what string, err error) *RunError {
	return &RunError{Code: ErrCodeStoreWrite, Message: "write " + what, Pass: pass, Err: err}
}

// NewSynthesisError wraps a failed synthesis pass.
func NewSynthesisError(pass int, err error) *RunError {
	return &RunError{Code: ErrCodeSynthesis, Message: "synthesize deltas", Pass: pass, Err: err}
}
