package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindNotFound, http.StatusNotFound},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestErrorsIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("login: %w", Unauthorized("invalid credentials"))

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestKindOfUnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("query failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "query failed: connection reset", err.Error())
}

func TestFieldErrors(t *testing.T) {
	f := FieldErrors{}
	assert.True(t, f.Empty())

	f.Add("password", "too short")
	f.Add("password", "needs a digit")
	f.Add("email", "invalid")

	assert.False(t, f.Empty())
	assert.Equal(t, "email: invalid; password: too short, needs a digit", f.String())
	assert.Equal(t, KindValidation, Validation(f).Kind)
}
