package errors

import "fmt"

type baseError struct {
	message string
	cause   error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

// ValidationError represents a malformed request (HTTP 400)
type ValidationError struct {
	baseError
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{baseError{message: message}}
}

func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{baseError{message: fmt.Sprintf(format, args...)}}
}

// UnauthorizedError represents a rejected caller (HTTP 401)
type UnauthorizedError struct {
	baseError
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{baseError{message: message}}
}

// NotFoundError represents a missing resource (HTTP 404)
type NotFoundError struct {
	baseError
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{baseError{message: message}}
}

func NewNotFoundErrorf(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{baseError{message: fmt.Sprintf(format, args...)}}
}

// InternalError represents an internal server error (HTTP 500)
type InternalError struct {
	baseError
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{baseError{message: message, cause: cause}}
}
