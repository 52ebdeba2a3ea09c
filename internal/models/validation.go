package models

import (
	"fmt"
	"math"
)

// ValidationError reports caller input that is out of range. Out-of-range
// input is rejected, never silently clamped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Clamp01 bounds internally computed scores to [0, 1]. NaN collapses to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CheckScore01 validates an externally supplied score without clamping it.
func CheckScore01(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return NewValidationError(field, fmt.Sprintf("score %v outside [0, 1]", v))
	}
	return nil
}
