package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuth2Error_WithStateClones(t *testing.T) {
	base := NewInvalidRequest("missing parameter")
	withState := base.WithState("s-1")

	assert.Equal(t, "s-1", withState.State)
	assert.Empty(t, base.State)
	assert.Equal(t, base.Code, withState.Code)
}

func TestOAuth2Error_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := NewInternalError(cause)

	require.ErrorIs(t, wrapped, cause)
	// The raw cause is not leaked in the client-facing description.
	assert.NotContains(t, wrapped.Description, "connection refused")
	assert.Equal(t, StatusInternalServerError, wrapped.Status)
}

func TestOAuth2Error_Error(t *testing.T) {
	err := NewInvalidScope("the scope write is not allowed for this client")
	assert.Equal(t, "invalid_scope: the scope write is not allowed for this client", err.Error())
}
