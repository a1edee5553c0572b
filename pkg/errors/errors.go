// Package errors provides structured error handling for hdscan.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitNotFound = 4 // Resource not found
	ExitCanceled = 6 // Scan canceled before completion
)

// ScanError is the structured error type for hdscan.
type ScanError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *ScanError) Error() string {
	msg := e.Message

	// Details are sorted for deterministic output
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ScanError.
func (e *ScanError) Is(target error) bool {
	var t *ScanError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &ScanError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &ScanError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &ScanError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidMnemonic = &ScanError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrInvalidKey = &ScanError{
		Code:     "INVALID_KEY",
		Message:  "invalid extended key",
		ExitCode: ExitInput,
	}

	// Derivation errors.
	ErrDerivation = &ScanError{
		Code:     "DERIVATION_FAILED",
		Message:  "key derivation failed",
		ExitCode: ExitGeneral,
	}

	ErrIndexOverflow = &ScanError{
		Code:     "INDEX_OVERFLOW",
		Message:  "derivation index exhausted",
		ExitCode: ExitGeneral,
	}

	ErrUnknownFormat = &ScanError{
		Code:     "UNKNOWN_ADDRESS_FORMAT",
		Message:  "unknown address format",
		ExitCode: ExitInput,
	}

	ErrUnknownNetwork = &ScanError{
		Code:     "UNKNOWN_NETWORK",
		Message:  "unknown network",
		ExitCode: ExitInput,
	}

	// Discovery errors.
	ErrInvalidGapLimit = &ScanError{
		Code:     "INVALID_GAP_LIMIT",
		Message:  "gap limit must be between 1 and 2147483648",
		ExitCode: ExitInput,
	}

	ErrQueryResultType = &ScanError{
		Code:     "QUERY_RESULT_TYPE",
		Message:  "expected query set, not array",
		ExitCode: ExitGeneral,
	}

	ErrScanCanceled = &ScanError{
		Code:     "SCAN_CANCELED",
		Message:  "discovery scan was canceled",
		ExitCode: ExitCanceled,
	}

	ErrUnknownScheme = &ScanError{
		Code:     "UNKNOWN_SCHEME",
		Message:  "unknown path scheme",
		ExitCode: ExitInput,
	}

	// Oracle errors.
	ErrNetworkError = &ScanError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrUnknownOracle = &ScanError{
		Code:     "UNKNOWN_ORACLE",
		Message:  "unknown address activity oracle",
		ExitCode: ExitInput,
	}

	// Config and storage errors.
	ErrConfigInvalid = &ScanError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &ScanError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown configuration key",
		ExitCode: ExitNotFound,
	}

	ErrCursorNotFound = &ScanError{
		Code:     "CURSOR_NOT_FOUND",
		Message:  "no stored chain cursor",
		ExitCode: ExitNotFound,
	}

	ErrStoreCorrupted = &ScanError{
		Code:     "STORE_CORRUPTED",
		Message:  "chain store record is corrupted",
		ExitCode: ExitGeneral,
	}
)

// New creates a new ScanError with the given code and message.
func New(code, message string) *ScanError {
	return &ScanError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var se *ScanError
	if errors.As(err, &se) {
		return &ScanError{
			Code:       se.Code,
			Message:    fmt.Sprintf("%s: %s", msg, se.Message),
			Details:    se.Details,
			Suggestion: se.Suggestion,
			Cause:      err,
			ExitCode:   se.ExitCode,
		}
	}

	return &ScanError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel, keeping its code.
func WithCause(sentinel *ScanError, cause error) error {
	return &ScanError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var se *ScanError
	if errors.As(err, &se) {
		return &ScanError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    details,
			Suggestion: se.Suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &ScanError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var se *ScanError
	if errors.As(err, &se) {
		return &ScanError{
			Code:       se.Code,
			Message:    se.Message,
			Details:    se.Details,
			Suggestion: suggestion,
			Cause:      se.Cause,
			ExitCode:   se.ExitCode,
		}
	}

	return &ScanError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var se *ScanError
	if errors.As(err, &se) {
		return se.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
