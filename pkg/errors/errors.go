package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Execution errors
	ErrSourceNotFound    ErrorCode = "SOURCE_NOT_FOUND"
	ErrDestinationExists ErrorCode = "DESTINATION_EXISTS"
	ErrExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrIntegrityVerify   ErrorCode = "INTEGRITY_VERIFICATION_FAILURE"
	ErrInvalidActionType ErrorCode = "INVALID_ACTION_TYPE"
	ErrInvalidLinkType   ErrorCode = "INVALID_LINK_TYPE"

	// Catalog errors
	ErrCatalog  ErrorCode = "CATALOG"
	ErrTagApply ErrorCode = "TAG_APPLY"
)

// DosortError represents a structured error with code and details
type DosortError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DosortError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DosortError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DosortError) Is(target error) bool {
	var targetErr *DosortError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DosortError with the given code and message
func New(code ErrorCode, message string) *DosortError {
	return &DosortError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DosortError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DosortError {
	return &DosortError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DosortError
func Wrap(err error, code ErrorCode, message string) *DosortError {
	if err == nil {
		return nil
	}
	return &DosortError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DosortError {
	if err == nil {
		return nil
	}
	return &DosortError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DosortError) WithDetail(key string, value interface{}) *DosortError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DosortError) WithDetails(details map[string]interface{}) *DosortError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var dosortErr *DosortError
	if errors.As(err, &dosortErr) {
		return dosortErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DosortError
func GetErrorCode(err error) ErrorCode {
	var dosortErr *DosortError
	if errors.As(err, &dosortErr) {
		return dosortErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a DosortError
func GetErrorDetails(err error) map[string]interface{} {
	var dosortErr *DosortError
	if errors.As(err, &dosortErr) {
		return dosortErr.Details
	}
	return nil
}

// IsConfigError reports whether err belongs to the configuration category,
// the only category that aborts a whole run.
func IsConfigError(err error) bool {
	switch GetErrorCode(err) {
	case ErrConfigLoad, ErrConfigParse, ErrConfigValid:
		return true
	}
	return false
}
