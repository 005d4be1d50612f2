package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeTransformerAlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{"success with data", "200", map[string]string{"id": "x"}},
		{"success without data", "204", nil},
		{"client error", "404", &APIError{Message: "not found"}},
		{"server error", "500", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			env, ok := result.(*envelope)
			require.True(t, ok)
			assert.Equal(t, envelopeVersion, env.V)
		})
	}
}

func TestEnvelopeTransformerSuccess(t *testing.T) {
	data := map[string]string{"id": "ws-123"}
	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	env := result.(*envelope)
	assert.True(t, env.Success)
	assert.Equal(t, data, env.Data)
	assert.Nil(t, env.Error)
}

func TestEnvelopeTransformerAPIError(t *testing.T) {
	apiErr := &APIError{
		Code:    "CONFLICT",
		Message: "domain already claimed",
		Details: map[string]string{"domain": "acme.com"},
	}
	result, err := EnvelopeTransformer(nil, "409", apiErr)
	require.NoError(t, err)

	env := result.(*envelope)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestEnvelopeTransformerPlainError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "500", errors.New("database gone"))
	require.NoError(t, err)

	env := result.(*envelope)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "database gone", env.Error.Message)
}

func TestEnvelopeTransformerIdempotent(t *testing.T) {
	first, err := EnvelopeTransformer(nil, "200", "data")
	require.NoError(t, err)
	second, err := EnvelopeTransformer(nil, "200", first)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
