package shared

import "errors"

var (
	// ErrNotFound indicates an id or slug that resolves to nothing.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or self-contradictory input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a write rejected by an integrity rule.
	ErrConflict = errors.New("conflict")
)
