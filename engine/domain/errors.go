package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline failures.
var (
	ErrInvalidQuestion     = errors.New("invalid question")
	ErrQuestionTooShort    = errors.New("question too short")
	ErrInsufficientData    = errors.New("insufficient training data")
	ErrUnknownModelKind    = errors.New("unknown model kind")
	ErrSchemaMismatch      = errors.New("feature schema mismatch")
	ErrArtifactNotFound    = errors.New("model artifact not found")
	ErrNonFinitePrediction = errors.New("non-finite prediction")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
