// Package errors provides standardized error handling for the check-in pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeScanFileNotFound ErrorCode = "SCAN_FILE_NOT_FOUND"
	ErrCodeScanFileEmpty    ErrorCode = "SCAN_FILE_EMPTY"
	ErrCodeScanParseFailed  ErrorCode = "SCAN_PARSE_FAILED"

	ErrCodeInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	ErrCodeCRMTransport         ErrorCode = "CRM_TRANSPORT_ERROR"
	ErrCodeCRMAuthFailed        ErrorCode = "CRM_AUTH_FAILED"
	ErrCodeCRMResponseMalformed ErrorCode = "CRM_RESPONSE_MALFORMED"

	ErrCodeWatcherFailed ErrorCode = "WATCHER_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewScanFileNotFoundError creates a non-retryable error for a missing export file.
func NewScanFileNotFoundError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScanFileNotFound,
		Message:   "Scan export file not found",
		Details:   fmt.Sprintf("path: %s", path),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScanFileEmptyError creates a non-retryable error for an export with no rows.
func NewScanFileEmptyError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScanFileEmpty,
		Message:   "Scan export file contains no rows",
		Details:   fmt.Sprintf("path: %s", path),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScanParseFailedError creates a non-retryable export parse error.
func NewScanParseFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScanParseFailed,
		Message:   "Failed to parse scan export file",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidQueryError creates a non-retryable error for a search with no criteria.
func NewInvalidQueryError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQuery,
		Message:   "No search criteria supplied",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidArgumentError creates a non-retryable bad-argument error.
func NewInvalidArgumentError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidArgument,
		Message:   "Invalid argument",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCRMTransportError creates a retryable remote-call error. The original
// remote error text is preserved in Details for diagnosis.
func NewCRMTransportError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMTransport,
		Message:   fmt.Sprintf("CRM request to '%s' failed", source),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCRMAuthFailedError creates a non-retryable authentication error.
func NewCRMAuthFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMAuthFailed,
		Message:   "CRM authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCRMResponseMalformedError creates a retryable error for an unusable response body.
func NewCRMResponseMalformedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMResponseMalformed,
		Message:   "CRM response body did not match the expected shape",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWatcherFailedError creates a non-retryable watcher setup/runtime error.
func NewWatcherFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWatcherFailed,
		Message:   "Export file watcher error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from err, wrapping unknown errors
// under a generic internal code so callers always have a code to report.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err is a StandardError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SCAN"):
		return "SCAN"
	case strings.Contains(codeStr, "CRM"):
		return "CRM"
	case strings.Contains(codeStr, "WATCHER"):
		return "WATCHER"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
