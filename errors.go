package main

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the form engine, the registration guard and the
// repository. Callers match them with errors.Is and decide how to surface
// each one; none of them leaves stored or in-progress state inconsistent.
var (
	// ErrInvalidTransition means an operation does not apply to the user's
	// current form state. The operation is a no-op.
	ErrInvalidTransition = errors.New("operation not valid in current state")

	// ErrNotFound means a referenced event or registration does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered means a registration for the (user, event) pair
	// already exists.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrCapacityExceeded means the event has reached its participant limit.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ValidationError reports user input that a form step could not parse.
// The form stays at the same step; Reason is the re-prompt text.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
