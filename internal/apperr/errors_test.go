package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", ErrNameRequired, http.StatusBadRequest},
		{"not found", ErrMessageNotFound, http.StatusNotFound},
		{"conflict", ErrEmailTaken, http.StatusConflict},
		{"unauthenticated", ErrInvalidToken, http.StatusUnauthorized},
		{"precondition", ErrNotInGroup, http.StatusPreconditionFailed},
		{"too large", ErrUploadTooLarge, http.StatusRequestEntityTooLarge},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("handler: %w", ErrCodeRequired), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to save location", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "failed to save location", MessageOf(err))
	assert.Equal(t, "failed to save location: connection reset", err.Error())
}

func TestSentinelMatching(t *testing.T) {
	err := fmt.Errorf("join: %w", ErrCodeRequired)
	assert.ErrorIs(t, err, ErrCodeRequired)
	assert.NotErrorIs(t, err, ErrNameRequired)
	assert.Equal(t, "internal error", MessageOf(errors.New("x")))
}
