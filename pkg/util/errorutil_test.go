package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorMapping(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))

	wrapped := fmt.Errorf("load ticket: %w", pgx.ErrNoRows)
	de := ToDomainError(wrapped)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)

	de = ToDomainError(errors.New("disk on fire"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error: disk on fire", de.Error())

	original := NewConflict("email already registered", nil)
	assert.Same(t, original, ToDomainError(fmt.Errorf("register: %w", original)))
}

func TestCauseIsKeptForErrorsIs(t *testing.T) {
	sentinel := errors.New("pair not in table")
	err := NewInvalidTransition("cannot move", map[string]any{"from": "closed"}, sentinel)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsCode(err, CodeInvalidTransition))
	assert.False(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(sentinel, CodeInvalidTransition))
}

func TestNotFoundDetailsNeverNil(t *testing.T) {
	var de *DomainError
	assert.True(t, errors.As(NewNotFound("complaint", nil), &de))
	assert.NotNil(t, de.Details)
	assert.Equal(t, "complaint not found", de.Message)
}
