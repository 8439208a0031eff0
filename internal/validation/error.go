// Package validation carries model validation failures from the domain
// packages to the API layer.
//
// A failure names the offending field with a JSON pointer-like source path
// (for example "data/attributes/name") and a human message, so the HTTP
// layer can render field-level feedback without knowing the domain.
package validation

import (
	"errors"
	"strings"
)

// Error is a recoverable model validation failure.
//
// Err optionally holds the package sentinel that classifies the failure, so
// callers can still test errors.Is(err, hardware.ErrNameAlreadyUsed).
type Error struct {
	Pointer string
	Message string
	Err     error
}

// New creates a validation error for pointer wrapping sentinel.
func New(pointer, message string, sentinel error) *Error {
	return &Error{Pointer: pointer, Message: message, Err: sentinel}
}

func (e *Error) Error() string {
	if e.Pointer == "" {
		return e.Message
	}
	return e.Pointer + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// List is a set of validation failures reported together.
type List []*Error

func (l List) Error() string {
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes every member to errors.Is and errors.As.
func (l List) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns nil for an empty list and the list otherwise.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Collect flattens err into individual validation failures.
// It reports false when err carries no validation failure at all.
func Collect(err error) (List, bool) {
	if err == nil {
		return nil, false
	}
	var list List
	if errors.As(err, &list) {
		return list, true
	}
	var single *Error
	if errors.As(err, &single) {
		return List{single}, true
	}
	return nil, false
}
