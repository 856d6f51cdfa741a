package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a persisted resource (case file, index) was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a rejected precondition (empty document set, blank question)
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates a failure of an external service (extraction, embedding, generation)
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewNotFoundErrorWrap creates a not found error that keeps the underlying cause
func NewNotFoundErrorWrap(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Err
	}
	return false
}

// MalformedExtractionError is returned when an entity-extraction response
// cannot be parsed into the expected object. Raw holds the response text.
type MalformedExtractionError struct {
	Raw string
	Err error
}

// Error implements the error interface
func (e *MalformedExtractionError) Error() string {
	return fmt.Sprintf("malformed extraction response: %v", e.Err)
}

// Unwrap implements the unwrap interface
func (e *MalformedExtractionError) Unwrap() error {
	return e.Err
}

// NewMalformedExtractionError creates a new malformed extraction error
func NewMalformedExtractionError(raw string, err error) *MalformedExtractionError {
	return &MalformedExtractionError{Raw: raw, Err: err}
}

// IsMalformedExtraction reports whether err wraps a MalformedExtractionError.
func IsMalformedExtraction(err error) bool {
	var target *MalformedExtractionError
	return stderrors.As(err, &target)
}
