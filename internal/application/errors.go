package application

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced trainer, client, or event does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a proposed interval overlaps an existing
	// non-cancelled event for the same trainer. Surfaced distinctly from
	// ErrNotFound so callers can offer "pick another time" handling.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidTransition is returned when a status change is not permitted
	// by the event state machine. The stored status remains unchanged.
	ErrInvalidTransition = errors.New("application: invalid transition")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// TrainerResolutionError reports that a trainer reference could not be
// resolved, enumerating the lookup strategies that were attempted.
type TrainerResolutionError struct {
	Reference string
	Attempted []string
}

// Error implements the error interface.
func (e *TrainerResolutionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("trainer %q not found (tried: %s)", e.Reference, strings.Join(e.Attempted, ", "))
}

// Unwrap lets errors.Is treat resolution failures as ErrNotFound.
func (e *TrainerResolutionError) Unwrap() error {
	return ErrNotFound
}
