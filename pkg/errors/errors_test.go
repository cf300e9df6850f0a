package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{Validation("bad", nil), http.StatusBadRequest},
		{Conflict("Time slot already booked.", nil), http.StatusBadRequest},
		{InvalidState("Cannot cancel this appointment"), http.StatusBadRequest},
		{Signature("Invalid payment signature"), http.StatusBadRequest},
		{NotFound("appointment", nil), http.StatusNotFound},
		{Forbidden("not yours"), http.StatusForbidden},
		{Unauthorized(nil), http.StatusUnauthorized},
		{Gateway("order failed", nil), http.StatusInternalServerError},
		{Internal(nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("no rows")
	wrapped := fmt.Errorf("lookup: %w", NotFound("doctor", cause))

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindConflict))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, KindInternal, KindOf(cause))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "doctor not found", NotFound("doctor", nil).Error())
	assert.Equal(t, "internal server error: boom", Internal(errors.New("boom")).Error())
}
