package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/notaro/notaro/internal/store"
	"github.com/notaro/notaro/internal/wire"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Request rejected (unknown note, invalid input or message)
	ExitCommandError = 2 // Command error (store unusable, unreadable input, etc.)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric        = "E_GENERIC"
	ErrCodeNotFound       = "E_NOT_FOUND"
	ErrCodeInvalid        = "E_INVALID"
	ErrCodeStorage        = "E_STORAGE"
	ErrCodeSerialization  = "E_SERIALIZATION"
	ErrCodeIO             = "E_IO"
	ErrCodeNotInitialized = "E_NOT_INITIALIZED"
	ErrCodePoisoned       = "E_POISONED"
	ErrCodeWire           = "E_WIRE"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E_NOT_FOUND", "E_WIRE", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// errorCode maps err to a stable CLI error code.
func errorCode(err error) string {
	switch store.KindOf(err) {
	case store.KindNotFound:
		return ErrCodeNotFound
	case store.KindInvalid:
		return ErrCodeInvalid
	case store.KindStorage:
		return ErrCodeStorage
	case store.KindSerialization:
		return ErrCodeSerialization
	case store.KindIO:
		return ErrCodeIO
	case store.KindNotInitialized:
		return ErrCodeNotInitialized
	case store.KindPoisoned:
		return ErrCodePoisoned
	}
	if errors.Is(err, wire.ErrInvalidMessage) ||
		errors.Is(err, wire.ErrUnknownType) ||
		errors.Is(err, wire.ErrMissingPayload) {
		return ErrCodeWire
	}
	return ErrCodeGeneric
}

// exitCode picks the process exit code for err. An ExitError keeps its own.
func exitCode(code string, err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch code {
	case ErrCodeNotFound, ErrCodeInvalid, ErrCodeWire:
		return ExitFailure
	}
	return ExitCommandError
}

// fail reports err through the formatter and returns the ExitError the
// command should return.
func fail(f *OutputFormatter, err error) error {
	code := errorCode(err)
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exitCode(code, err), code, err)
}
