package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion and query boundaries.
var (
	ErrEmptyNarrative       = errors.New("empty narrative")
	ErrNoNarrativeColumns   = errors.New("no narrative columns found")
	ErrMissingColumn        = errors.New("required column missing")
	ErrDimensionMismatch    = errors.New("vector dimension mismatch")
	ErrMissingCredential    = errors.New("missing required credential")
	ErrImagesUnsupported    = errors.New("active provider does not support images")
	ErrInvalidResolution    = errors.New("invalid resolution action")
	ErrNegativeDamage       = errors.New("damage amount must be non-negative")
)

// ValidationError wraps a sentinel with the offending field and value.
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
