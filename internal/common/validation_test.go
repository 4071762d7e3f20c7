package common

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsAllErrors(t *testing.T) {
	blank := "  "
	v := NewValidator().
		Field("domain", "", Required).
		Field("series", "ABCDE", Required, MaxLength(4)).
		Field("driver", &blank, Required).
		Field("issued_at", time.Time{}, Required).
		Field("measured_speed", -1.0, NonNegative)

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 5)
	assert.Equal(t, "domain", v.Errors()[0].Field)
	assert.Contains(t, v.ErrorMessage(), "must be at most 4 characters")

	err := v.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestValidator_Passes(t *testing.T) {
	speed := 72.5
	v := NewValidator().
		Field("domain", "AB123CD", Required, MaxLength(16)).
		Field("issued_at", time.Date(2025, 6, 12, 10, 55, 16, 0, time.UTC), Required).
		Field("measured_speed", &speed, NonNegative).
		Field("authorized_speed", (*float64)(nil), NonNegative)

	assert.False(t, v.HasErrors())
	assert.Empty(t, v.ErrorMessage())
	assert.NoError(t, v.Err())
}

func TestNonNegative_RejectsNonFinite(t *testing.T) {
	assert.NotNil(t, NonNegative("x", math.NaN()))
	assert.NotNil(t, NonNegative("x", math.Inf(1)))
	assert.NotNil(t, NonNegative("x", "12"))
	assert.Nil(t, NonNegative("x", int64(0)))
}

func TestMaxLength_CountsRunes(t *testing.T) {
	assert.Nil(t, MaxLength(4)("name", "ñoño"))
	assert.NotNil(t, MaxLength(3)("name", "ñoño"))
	assert.Nil(t, MaxLength(3)("name", 42))
}
