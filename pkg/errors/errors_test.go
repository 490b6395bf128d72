package errors

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewInternalError("Failed to create booking", sql.ErrConnDone)

	assert.Contains(t, err.Error(), "INTERNAL")
	assert.Contains(t, err.Error(), "Failed to create booking")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("pay booking: %w", NewInvalidStateError("Booking must be accepted before payment"))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeInvalidState, appErr.Type)
	assert.Equal(t, "Booking must be accepted before payment", appErr.Message)
}

func TestIsType(t *testing.T) {
	assert.True(t, IsType(NewForbiddenError("Forbidden"), ErrorTypeForbidden))
	assert.False(t, IsType(NewForbiddenError("Forbidden"), ErrorTypeNotFound))
	assert.False(t, IsType(sql.ErrNoRows, ErrorTypeNotFound))
}
