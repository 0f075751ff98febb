package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeCredential indicates a bad email/password combination.
	ErrCodeCredential ErrorCode = "credential"
	// ErrCodeConflict indicates a conflict with existing data (e.g., email already in use).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodePermission indicates an operation that requires more privilege,
	// such as an email update that requires a recent re-authentication.
	ErrCodePermission ErrorCode = "permission"
	// ErrCodeNetwork indicates a transient connectivity failure.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeConsistency indicates the identity and record sources disagree
	// about which user they describe.
	ErrCodeConsistency ErrorCode = "consistency"
	// ErrCodeRecordNotReady indicates the user record has not been written yet.
	// Transient and never user-visible; the session reconciler absorbs it.
	ErrCodeRecordNotReady ErrorCode = "record_not_ready"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled (e.g., an external
	// sign-in window dismissed before completion).
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
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

// Credential creates a new Credential error.
func Credential(message string) *AppError {
	return &AppError{
		Code:    ErrCodeCredential,
		Message: message,
	}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// Conflictf creates a new Conflict error with formatted message.
func Conflictf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// Permission creates a new Permission error.
func Permission(message string) *AppError {
	return &AppError{
		Code:    ErrCodePermission,
		Message: message,
	}
}

// Network creates a new Network error.
func Network(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNetwork,
		Message: message,
	}
}

// Consistency creates a new Consistency error.
func Consistency(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConsistency,
		Message: message,
	}
}

// Consistencyf creates a new Consistency error with formatted message.
func Consistencyf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeConsistency,
		Message: fmt.Sprintf(format, args...),
	}
}

// RecordNotReady creates a new RecordNotReady error.
func RecordNotReady(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRecordNotReady,
		Message: message,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
	}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsCredential checks if an error is a Credential error.
func IsCredential(err error) bool {
	return isCode(err, ErrCodeCredential)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsPermission checks if an error is a Permission error.
func IsPermission(err error) bool {
	return isCode(err, ErrCodePermission)
}

// IsNetwork checks if an error is a Network error.
func IsNetwork(err error) bool {
	return isCode(err, ErrCodeNetwork)
}

// IsConsistency checks if an error is a Consistency error.
func IsConsistency(err error) bool {
	return isCode(err, ErrCodeConsistency)
}

// IsRecordNotReady checks if an error is a RecordNotReady error.
func IsRecordNotReady(err error) bool {
	return isCode(err, ErrCodeRecordNotReady)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetCodeOrInternal returns the ErrorCode from an error, defaulting to
// ErrCodeInternal for errors outside the taxonomy.
func GetCodeOrInternal(err error) ErrorCode {
	if code := GetCode(err); code != "" {
		return code
	}
	return ErrCodeInternal
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
