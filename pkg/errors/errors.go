package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Menu persistence errors
	ErrorTypeMalformedPayload   ErrorType = "MALFORMED_PAYLOAD"
	ErrorTypeValidationFailed   ErrorType = "VALIDATION_FAILED"
	ErrorTypeParse              ErrorType = "PARSE_ERROR"
	ErrorTypeBackupFailed       ErrorType = "BACKUP_FAILED"
	ErrorTypeStorageWriteFailed ErrorType = "STORAGE_WRITE_FAILED"

	// Access errors
	ErrorTypeUnauthorized     ErrorType = "UNAUTHORIZED"
	ErrorTypePermissionDenied ErrorType = "PERMISSION_DENIED"

	// Application errors
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		Cause:      cause,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

// Constructor functions for common error types

// NewMalformedPayload reports a submitted tree that could not be decoded from the
// transport format.
func NewMalformedPayload(message string, cause error) *AppError {
	return newError(ErrorTypeMalformedPayload, http.StatusBadRequest, message, cause)
}

// NewValidationFailed reports a decoded tree that cannot be stored losslessly.
func NewValidationFailed(message string, cause error) *AppError {
	return newError(ErrorTypeValidationFailed, http.StatusUnprocessableEntity, message, cause)
}

// NewParseError reports stored text that is not a valid menu document.
func NewParseError(message string, cause error) *AppError {
	return newError(ErrorTypeParse, http.StatusUnprocessableEntity, message, cause)
}

// NewBackupFailed creates a backup error. Backup errors never fail a save.
func NewBackupFailed(operation string, cause error) *AppError {
	return newError(ErrorTypeBackupFailed, http.StatusInternalServerError,
		fmt.Sprintf("backup operation '%s' failed", operation), cause)
}

// NewStorageWriteFailed creates an error for a primary document that could not be persisted.
func NewStorageWriteFailed(location string, cause error) *AppError {
	return newError(ErrorTypeStorageWriteFailed, http.StatusInternalServerError,
		fmt.Sprintf("could not write %s", location), cause)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, nil)
}

// NewPermissionDenied creates an error for a caller lacking the given permission.
func NewPermissionDenied(permission string) *AppError {
	return newError(ErrorTypePermissionDenied, http.StatusForbidden,
		"Logged in user does not have the correct rights to use this route.", nil).
		WithDetails(map[string]interface{}{"permission": permission})
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, nil)
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("service '%s' is unavailable", service), nil)
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsMalformedPayload checks if an error is a malformed payload error
func IsMalformedPayload(err error) bool {
	return IsType(err, ErrorTypeMalformedPayload)
}

// IsValidationFailed checks if an error is a validation error
func IsValidationFailed(err error) bool {
	return IsType(err, ErrorTypeValidationFailed)
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	return IsType(err, ErrorTypeParse)
}

// IsBackupFailed checks if an error is a backup error
func IsBackupFailed(err error) bool {
	return IsType(err, ErrorTypeBackupFailed)
}

// IsStorageWriteFailed checks if an error is a storage write error
func IsStorageWriteFailed(err error) bool {
	return IsType(err, ErrorTypeStorageWriteFailed)
}

// IsPermissionDenied checks if an error is a permission error
func IsPermissionDenied(err error) bool {
	return IsType(err, ErrorTypePermissionDenied)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
