package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeNotFound, "venue not found", http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND: venue not found", err.Error())
}

func TestAppError_ErrorWithCause(t *testing.T) {
	cause := errors.New("row missing")
	err := Wrap(cause, ErrCodeNotFound, "camera not found", http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND: camera not found (caused by: row missing)", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestAppError_PublicMessage(t *testing.T) {
	assert.Equal(t, "no sender attached", NewPrecondition("no sender attached").PublicMessage())
	assert.Equal(t, "internal error", NewInvariantViolation("camera already has a sender").PublicMessage())
	assert.Equal(t, "internal error", NewInternal("db exploded").PublicMessage())
}

func TestAsAppError(t *testing.T) {
	inner := NewConflict("sender already connected")
	wrapped := fmt.Errorf("adding client: %w", inner)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrCodeConflict, got.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestConstructorStatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewInvalidInput("x").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, NewNotFound("venue").HTTPStatus)
	assert.Equal(t, http.StatusConflict, NewPrecondition("x").HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, NewUnauthorized("x").HTTPStatus)
	assert.Equal(t, http.StatusForbidden, NewForbidden("x").HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, NewRateLimit().HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewInvariantViolation("x").HTTPStatus)
}
