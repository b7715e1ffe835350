// Package errs holds the error vocabulary shared by repositories, services and
// HTTP handlers.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors translated by repositories and mapped to HTTP status codes.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// ValidationError reports a rule violation that must be corrected by the caller.
// It is never retried and never reaches storage.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrInvalid) match every validation error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Invalid builds a ValidationError.
func Invalid(code, format string, args ...any) error {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Wrap adds "component.op: " context, keeping the chain intact.
func Wrap(err error, component, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %w", component, op, err)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
