package common

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("infraction 9: %w", ErrNotFound), codes.NotFound},
		{NewAppError("VALIDATION_ERROR", "bad", ErrInvalidInput), codes.InvalidArgument},
		{fmt.Errorf("render: %w", ErrTemplateUnavailable), codes.FailedPrecondition},
		{ErrMailDisabled, codes.FailedPrecondition},
		{ErrDatabase, codes.Internal},
	}
	for _, tt := range tests {
		st, ok := status.FromError(ToStatus(tt.err))
		require.True(t, ok)
		assert.Equal(t, tt.code, st.Code(), tt.err.Error())
	}
	assert.NoError(t, ToStatus(nil))
}

func TestAppError(t *testing.T) {
	err := NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	assert.Equal(t, "CONFIG_ERROR: DB_URL is required: invalid input", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "X: y", NewAppError("X", "y", nil).Error())
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, id, RequestIDFromContext(ctx))

	same, again := EnsureRequestID(ctx)
	assert.Equal(t, id, again)
	assert.Equal(t, ctx, same)

	assert.NotNil(t, LoggerFromContext(context.Background(), nil))
}
