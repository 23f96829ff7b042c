package workflow

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers match them with errors.Is.
var (
	ErrNotFound               = errors.New("request not found")
	ErrAlreadyLocked          = errors.New("request already locked")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrValidation             = errors.New("validation error")
)

// Error carries a human-readable reason on top of one of the kinds above.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func invalidTransition(format string, args ...interface{}) error {
	return newError(ErrInvalidStateTransition, format, args...)
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// KindOf returns the engine error kind of err, or nil for infrastructure errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrAlreadyLocked, ErrInvalidStateTransition, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
