package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // converged, or the command succeeded
	ExitFailure      = 1 // run exhausted, or invariants fail
	ExitCommandError = 2 // bad path, unreadable store, invalid config
)

// Error codes carried in error responses.
const (
	ErrCodeConfig   = "E001" // invalid flags or config file
	ErrCodeNotFound = "E002" // graph location missing
	ErrCodeStore    = "E003" // store could not be opened or read
	ErrCodeRun      = "E004" // repair run aborted
	ErrCodeWrite    = "E005" // report or metrics file write error
	ErrCodeInput    = "E006" // unreadable command input
)

// ExitError ends a command with a specific process exit code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	ErrCode string // E00x code, empty for plain failures
	Message string
	Err     error

	// Reported is set once the error has been written to the command's
	// output, so Execute does not print it a second time.
	Reported bool
}

func (e *ExitError) Error() string {
	msg := e.Message
	if e.ErrCode != "" {
		msg = "[" + e.ErrCode + "] " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with no cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not an
// ExitError count as ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// TextWriter is implemented by results with their own terminal rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// OutputFormatter renders command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// Response is the JSON envelope of every command result.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. Text output uses data's WriteText when it has one.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	}
	if tw, ok := data.(TextWriter); ok {
		return tw.WriteText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error response. Text output shows details only when
// verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		})
	}
	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "Details: %v\n", details)
		return err
	}
	return nil
}

// Fail writes an error response and returns the matching ExitError, marked
// as reported.
func (f *OutputFormatter) Fail(exitCode int, errCode, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	if outErr := f.Error(errCode, message, details); outErr != nil {
		return outErr
	}
	return &ExitError{Code: exitCode, ErrCode: errCode, Message: message, Err: err, Reported: true}
}
