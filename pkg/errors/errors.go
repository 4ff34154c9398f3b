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
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Connectivity and catalog errors
	ErrConnectivity      ErrorCode = "CONNECTIVITY_UNAVAILABLE"
	ErrManifestNotFound  ErrorCode = "MANIFEST_NOT_FOUND"
	ErrManifestMalformed ErrorCode = "MANIFEST_MALFORMED"

	// Asset staging errors
	ErrAssetDownload    ErrorCode = "ASSET_DOWNLOAD"
	ErrChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"

	// Step execution errors
	ErrProcessLaunch ErrorCode = "PROCESS_LAUNCH"
	ErrStepFailed    ErrorCode = "STEP_FAILED"

	// Environment errors
	ErrConfigUpdate   ErrorCode = "CONFIG_UPDATE"
	ErrEnvNotFound    ErrorCode = "ENV_NOT_FOUND"
	ErrEnvLoad        ErrorCode = "ENV_LOAD"
	ErrDependency     ErrorCode = "DEPENDENCY"
	ErrComponent      ErrorCode = "COMPONENT_INSTALL"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileCreate   ErrorCode = "FILE_CREATE"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
	ErrEntryWrite   ErrorCode = "ENTRY_WRITE"
)

// CellarError represents a structured error with code and details
type CellarError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *CellarError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CellarError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *CellarError) Is(target error) bool {
	var targetErr *CellarError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new CellarError with the given code and message
func New(code ErrorCode, message string) *CellarError {
	return &CellarError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new CellarError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *CellarError {
	return &CellarError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a CellarError
func Wrap(err error, code ErrorCode, message string) *CellarError {
	if err == nil {
		return nil
	}
	return &CellarError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *CellarError {
	if err == nil {
		return nil
	}
	return &CellarError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *CellarError) WithDetail(key string, value interface{}) *CellarError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *CellarError) WithDetails(details map[string]interface{}) *CellarError {
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
	var cellarErr *CellarError
	if errors.As(err, &cellarErr) {
		return cellarErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a CellarError
func GetErrorCode(err error) ErrorCode {
	var cellarErr *CellarError
	if errors.As(err, &cellarErr) {
		return cellarErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a CellarError
func GetErrorDetails(err error) map[string]interface{} {
	var cellarErr *CellarError
	if errors.As(err, &cellarErr) {
		return cellarErr.Details
	}
	return nil
}
