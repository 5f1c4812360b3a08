// Package errors provides structured error handling for the Yuna server
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType categorizes errors by how callers should react to them
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeIO              ErrorType = "io"
	ErrorTypeInternal        ErrorType = "internal"
	ErrorTypeExternal        ErrorType = "external"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Account/credential errors
	ErrCodeAlreadyExists      ErrorCode = "ALREADY_EXISTS"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"

	// Resource errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// System errors
	ErrCodeIOError  ErrorCode = "IO_ERROR"
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

	// External collaborator errors
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// YunaError represents a structured error in the Yuna server
type YunaError struct {
	Type    ErrorType              `json:"type"`
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *YunaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *YunaError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *YunaError) WithDetail(key string, value interface{}) *YunaError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new structured error
func New(errType ErrorType, code ErrorCode, message string) *YunaError {
	return &YunaError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewWithCause creates a new structured error wrapping a cause
func NewWithCause(errType ErrorType, code ErrorCode, message string, cause error) *YunaError {
	return &YunaError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Account/credential error constructors

func NewAlreadyExistsError(username string) *YunaError {
	return New(ErrorTypeConflict, ErrCodeAlreadyExists,
		fmt.Sprintf("username '%s' is already taken", username)).WithDetail("username", username)
}

func NewInvalidCredentialsError() *YunaError {
	return New(ErrorTypeUnauthenticated, ErrCodeInvalidCredentials, "invalid username or password")
}

func NewUnauthenticatedError(message string) *YunaError {
	return New(ErrorTypeUnauthenticated, ErrCodeUnauthenticated, message)
}

// Resource error constructors

func NewNotFoundError(resource string) *YunaError {
	return New(ErrorTypeNotFound, ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource)).WithDetail("resource", resource)
}

// Validation error constructors

func NewValidationError(message string) *YunaError {
	return New(ErrorTypeValidation, ErrCodeValidation, message)
}

func NewInvalidInputError(message string) *YunaError {
	return New(ErrorTypeValidation, ErrCodeInvalidInput, message)
}

// System error constructors

func NewIOError(message string, cause error) *YunaError {
	return NewWithCause(ErrorTypeIO, ErrCodeIOError, message, cause)
}

func NewInternalError(message string) *YunaError {
	return New(ErrorTypeInternal, ErrCodeInternal, message)
}

func NewInternalErrorWithCause(message string, cause error) *YunaError {
	return NewWithCause(ErrorTypeInternal, ErrCodeInternal, message, cause)
}

// External collaborator error constructors

func NewServiceUnavailableError(service string, cause error) *YunaError {
	return NewWithCause(ErrorTypeExternal, ErrCodeServiceUnavailable,
		fmt.Sprintf("%s service is unavailable", service), cause).WithDetail("service", service)
}

// Classification helpers

// IsCode reports whether err is a YunaError carrying the given code
func IsCode(err error, code ErrorCode) bool {
	var yerr *YunaError
	if stderrors.As(err, &yerr) {
		return yerr.Code == code
	}
	return false
}

// IsAlreadyExists reports whether err means the target identity is taken
func IsAlreadyExists(err error) bool {
	return IsCode(err, ErrCodeAlreadyExists)
}

// IsInvalidCredentials reports whether err means a failed credential proof
func IsInvalidCredentials(err error) bool {
	return IsCode(err, ErrCodeInvalidCredentials)
}

// IsUnauthenticated reports whether err means the caller has no valid session
func IsUnauthenticated(err error) bool {
	return IsCode(err, ErrCodeUnauthenticated) || IsCode(err, ErrCodeInvalidCredentials)
}

// IsNotFound reports whether err means a missing resource
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// GetYunaError extracts a YunaError from an error chain, or nil
func GetYunaError(err error) *YunaError {
	var yerr *YunaError
	if stderrors.As(err, &yerr) {
		return yerr
	}
	return nil
}
