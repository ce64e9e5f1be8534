package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateEntryID validates a content entry identifier.
//
// IDs appear in plan files, cache keys and SVG labels, so the rules are
// conservative:
//   - No empty IDs
//   - No control characters
//   - Maximum length of 256 characters
func ValidateEntryID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidEntry, "entry id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidEntry, "entry id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidEntry, "entry id %q contains control characters", id)
		}
	}

	return nil
}

// ValidatePath validates an output or input file path supplied on the
// command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateFraction checks that v is a finite value in the half-open
// interval (0, 1].
func ValidateFraction(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be finite", name)
	}
	if v <= 0 || v > 1 {
		return New(ErrCodeInvalidConfig, "%s must be in (0, 1], got %g", name, v)
	}
	return nil
}

// ValidatePositive checks that v is finite and strictly greater than zero.
func ValidatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be finite", name)
	}
	if v <= 0 {
		return New(ErrCodeInvalidConfig, "%s must be positive, got %g", name, v)
	}
	return nil
}

// ValidateNonNegative checks that v is finite and not below zero.
func ValidateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidConfig, "%s must be finite", name)
	}
	if v < 0 {
		return New(ErrCodeInvalidConfig, "%s cannot be negative, got %g", name, v)
	}
	return nil
}
