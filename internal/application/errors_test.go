package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	assert.Equal(t, "", err.Error())

	empty := &ValidationError{}
	assert.Equal(t, "validation failed", empty.Error())

	withFields := &ValidationError{FieldErrors: map[string]string{"period": "bad", "date": "bad"}}
	assert.Equal(t, "validation failed: date, period", withFields.Error())
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, (&ValidationError{}).HasErrors())
	assert.False(t, (*ValidationError)(nil).HasErrors())
	assert.True(t, (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors())
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	assert.Equal(t, "value", base.FieldErrors["first"])

	other := &ValidationError{FieldErrors: map[string]string{"period": "another"}}
	base.merge("sessions[3]", other)
	assert.Equal(t, "another", base.FieldErrors["sessions[3].period"])

	base.merge("", &ValidationError{FieldErrors: map[string]string{"date": "x"}})
	assert.Equal(t, "x", base.FieldErrors["date"])

	base.merge("ignored", nil)
	assert.Len(t, base.FieldErrors, 3)
}

func TestUnresolvedReferenceError(t *testing.T) {
	t.Parallel()

	err := &UnresolvedReferenceError{Kind: ReferenceClass, Names: []string{"X", "Y"}}
	assert.Equal(t, "unresolved class reference: X, Y", err.Error())
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                     nil,
		"not_found":            fmt.Errorf("wrap: %w", ErrNotFound),
		"already_exists":       ErrAlreadyExists,
		"invariant_violation":  fmt.Errorf("%w: slot", ErrInvariantViolation),
		"canceled":             context.Canceled,
		"unresolved_reference": fmt.Errorf("row: %w", &UnresolvedReferenceError{Kind: ReferenceRoom}),
		"validation":           &ValidationError{FieldErrors: map[string]string{"a": "b"}},
		"unexpected":           errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, ErrorKind(err), "error %v", err)
	}
}
