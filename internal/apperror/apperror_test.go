package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAppError_Wrapped(t *testing.T) {
	base := NewNotFound("purchase request", "abc")
	wrapped := fmt.Errorf("approve: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))
	assert.True(t, IsNotFound(wrapped))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestConflictFamily(t *testing.T) {
	assert.True(t, IsConflict(NewConflict(CodeAlreadyProcessed, "already processed")))
	assert.True(t, IsConflict(NewDuplicate("purchase", "number", "00001")))
	assert.True(t, IsDuplicate(NewDuplicate("purchase", "number", "00001")))
	assert.False(t, IsConflict(NewValidation("title is required")))
}

func TestFieldValidation(t *testing.T) {
	err := NewFieldValidation("reason", "reason is required")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "reason", err.Details["field"])
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestUnwrapCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewExternal("cnpj", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.Contains(t, err.Error(), "cnpj lookup failed")
}
