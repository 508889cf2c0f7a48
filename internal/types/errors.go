package types

import "fmt"

// ValidationError reports a malformed or out-of-order event.
// Appending a backdated event or a payload that fails kind-specific
// shape validation produces one of these.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports a duplicate check-in or reflection for a date.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// NewConflictError builds a ConflictError with a formatted reason.
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// PreconditionError reports a data-integrity violation, e.g. an evening
// reflection recorded before any morning check-in, or a decision outcome
// referencing an unknown decision.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition: " + e.Reason
}

// NewPreconditionError builds a PreconditionError with a formatted reason.
func NewPreconditionError(format string, args ...interface{}) *PreconditionError {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}
