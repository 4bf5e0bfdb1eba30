package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique name is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvariantViolation is returned when the store rejects a write that the
	// service believed to be consistent, such as a slot collision outside the
	// self-resolving write paths.
	ErrInvariantViolation = errors.New("application: invariant violation")
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
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
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

// merge copies entries from another validation error into the receiver,
// prefixing each field when prefix is not empty.
func (v *ValidationError) merge(prefix string, other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		if prefix != "" {
			field = prefix + "." + field
		}
		v.add(field, msg)
	}
}

// ReferenceKind names the registry an unresolved reference points into.
type ReferenceKind string

const (
	ReferenceRoom  ReferenceKind = "room"
	ReferenceClass ReferenceKind = "class"
)

// UnresolvedReferenceError reports every name that could not be found in a
// registry. It is kept distinct from ValidationError so callers can tell bad
// input apart from input that points at missing data.
type UnresolvedReferenceError struct {
	Kind  ReferenceKind
	Field string
	Names []string
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("unresolved %s reference: %s", e.Kind, strings.Join(e.Names, ", "))
}
