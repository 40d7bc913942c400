// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a duplicate identifier or conflicting registration.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates illegal API usage: invalid input, missing
// collaborator wiring, or an operation invoked in a disabled state.
var ErrValidation = errors.New("validation")
