package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of session or access-control failure.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the auth server rejected the credentials (HTTP 401).
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeUnreachable indicates no network path to the auth server, including timeouts.
	ErrCodeUnreachable ErrorCode = "unreachable"
	// ErrCodeServerRejected indicates the server answered but refused the request with a message.
	ErrCodeServerRejected ErrorCode = "server_rejected"
	// ErrCodeUnknown covers any failure that fits no other category.
	ErrCodeUnknown ErrorCode = "unknown"
	// ErrCodeAuthentication indicates a missing, expired or invalid token.
	ErrCodeAuthentication ErrorCode = "authentication"
	// ErrCodeAuthorization indicates a valid identity whose role is not permitted.
	ErrCodeAuthorization ErrorCode = "authorization"
	// ErrCodeDataCorruption indicates persisted session state could not be read back.
	ErrCodeDataCorruption ErrorCode = "data_corruption"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeConflict indicates the operation collides with one already in flight.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError { return New(ErrCodeUnauthorized, message) }

// Unreachable creates a new Unreachable error wrapping the transport cause.
func Unreachable(cause error) *AppError {
	return &AppError{Code: ErrCodeUnreachable, Message: "auth server unreachable", Cause: cause}
}

// ServerRejected creates a new ServerRejected error carrying the server's message.
func ServerRejected(message string) *AppError { return New(ErrCodeServerRejected, message) }

// Unknown creates a new Unknown error.
func Unknown(message string) *AppError { return New(ErrCodeUnknown, message) }

// Authentication creates a new Authentication error.
func Authentication(message string) *AppError { return New(ErrCodeAuthentication, message) }

// Authorization creates a new Authorization error.
func Authorization(message string) *AppError { return New(ErrCodeAuthorization, message) }

// DataCorruption creates a new DataCorruption error wrapping the decode cause.
func DataCorruption(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeDataCorruption, Message: message, Cause: cause}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError { return New(ErrCodeValidation, message) }

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError { return New(ErrCodeConflict, message) }

// Internal creates a new Internal error.
func Internal(message string) *AppError { return New(ErrCodeInternal, message) }

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool { return isCode(err, ErrCodeUnauthorized) }

// IsUnreachable checks if an error is an Unreachable error.
func IsUnreachable(err error) bool { return isCode(err, ErrCodeUnreachable) }

// IsServerRejected checks if an error is a ServerRejected error.
func IsServerRejected(err error) bool { return isCode(err, ErrCodeServerRejected) }

// IsAuthentication checks if an error is an Authentication error.
func IsAuthentication(err error) bool { return isCode(err, ErrCodeAuthentication) }

// IsAuthorization checks if an error is an Authorization error.
func IsAuthorization(err error) bool { return isCode(err, ErrCodeAuthorization) }

// IsDataCorruption checks if an error is a DataCorruption error.
func IsDataCorruption(err error) bool { return isCode(err, ErrCodeDataCorruption) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetMessage returns the AppError message without its cause, or err.Error() otherwise.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
