package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrType represents different types of errors
type ErrType string

const (
	// ErrTypeAWS represents AWS service errors
	ErrTypeAWS ErrType = "aws"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrType = "config"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrType = "validation"
	// ErrTypePrecondition represents an instance that is not in the state an
	// operation requires (e.g. starting an instance that is not stopped)
	ErrTypePrecondition ErrType = "precondition"
)

// AppError represents a custom error with context
type AppError struct {
	Type       ErrType
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s error: %s (caused by: %v)", e.Type, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Underlying
}

// New creates a new AppError
func New(errType ErrType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(errType ErrType, message string, err error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	e.Context[key] = value
	return e
}

// GetContext returns context value
func (e *AppError) GetContext(key string) (interface{}, bool) {
	val, exists := e.Context[key]
	return val, exists
}

// Common error constructors
func NewConfigError(message string, err error) *AppError {
	if err != nil {
		return Wrap(ErrTypeConfig, message, err)
	}
	return New(ErrTypeConfig, message)
}

func NewAWSError(message string, err error) *AppError {
	if err != nil {
		return Wrap(ErrTypeAWS, message, err)
	}
	return New(ErrTypeAWS, message)
}

func NewValidationError(message string) *AppError {
	return New(ErrTypeValidation, message)
}

// NewPreconditionError reports that an instance is in the wrong state for an operation.
func NewPreconditionError(instanceID, currentState, expectedState string) *AppError {
	return New(ErrTypePrecondition, fmt.Sprintf("instance %s is %s, expected %s", instanceID, currentState, expectedState)).
		WithContext("instance_id", instanceID).
		WithContext("state", currentState).
		WithContext("expected_state", expectedState)
}

// IsType reports whether any error in err's chain is an AppError of the given type.
func IsType(err error, errType ErrType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsPrecondition reports whether err is a precondition failure.
func IsPrecondition(err error) bool {
	return IsType(err, ErrTypePrecondition)
}
