package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("step", "s1")))
	assert.Equal(t, ErrCodeValidation, CodeOf(InvalidInput("feedback", "required")))
	assert.Equal(t, ErrCodeInvalidTransition, CodeOf(InvalidTransition("approve", "draft")))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
	assert.Empty(t, string(CodeOf(nil)))
}

func TestWrapUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeInternal, "failed to save step content")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to save step content")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("deliverable", "d1")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidInput("feedback", "required")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(InvalidTransition("submit", "approved")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(New(ErrCodeConflict, "busy")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(New(ErrCodeUnauthorized, "nope")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(stderrors.New("boom")))
}
