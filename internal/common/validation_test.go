package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator()
	v.Field("name", "", Required)
	v.Field("id", "not-a-uuid", UUID)
	v.Field("note", "ok", MaxLen(10))

	require.True(t, v.HasErrors())
	err := v.Error()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "id")
	assert.NotContains(t, err.Error(), "note")
}

func TestValidatorPasses(t *testing.T) {
	v := NewValidator()
	v.Field("id", "1b671a64-40d5-491e-99b0-da01ff1f3341", UUID)
	v.Field("name", "report.pdf", Required, MaxLen(255))
	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
}
