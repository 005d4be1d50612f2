package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("ws")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "ws-"))
	// Prefix + separator + 21-char NanoID.
	assert.Len(t, got, len("ws-")+21)
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		got, err := Generate("inv")
		require.NoError(t, err)
		require.False(t, seen[got], "duplicate ID generated: %s", got)
		seen[got] = true
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		got := MustGenerate("user")
		assert.True(t, strings.HasPrefix(got, "user-"))
	})
}
