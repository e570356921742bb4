package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	e := New(ErrKindNotFound, "session not found")
	assert.Equal(t, "[not_found] session not found", e.Error())

	wrapped := Wrap(ErrKindInvalidInput, "failed to read CSV header", errors.New("EOF"))
	assert.Equal(t, "[invalid_input] failed to read CSV header: EOF", wrapped.Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		kind ErrKind
		pred func(error) bool
	}{
		{ErrKindInvalidInput, IsInvalidInput},
		{ErrKindNotFound, IsNotFound},
		{ErrKindAmbiguous, IsAmbiguous},
		{ErrKindPlanFailed, IsPlanFailed},
		{ErrKindExecFailed, IsExecFailed},
		{ErrKindUnavailable, IsUnavailable},
		{ErrKindTimeout, IsTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := New(tt.kind, "boom")
			assert.True(t, tt.pred(err))
			assert.False(t, tt.pred(New(ErrKindUnknown, "other")))
		})
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	inner := New(ErrKindNotFound, "table not found")
	outer := fmt.Errorf("fetch: %w", inner)

	assert.True(t, IsNotFound(outer))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrKindUnavailable, "postgres unreachable", cause)

	assert.True(t, errors.Is(err, cause))
}
