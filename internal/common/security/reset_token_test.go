package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResetToken(t *testing.T) {
	t.Parallel()

	plaintext, hash, err := NewResetToken()
	require.NoError(t, err)

	assert.Len(t, plaintext, 64, "32 random bytes hex-encoded")
	assert.Len(t, hash, 64, "sha256 hex-encoded")
	assert.NotEqual(t, plaintext, hash)
	assert.Equal(t, hash, HashResetToken(plaintext), "stored hash must match recomputed hash")
}

func TestNewResetToken_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		plaintext, _, err := NewResetToken()
		require.NoError(t, err)
		require.False(t, seen[plaintext], "reset tokens must not repeat")
		seen[plaintext] = true
	}
}

func TestHashResetToken_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashResetToken("abc"), HashResetToken("abc"))
	assert.NotEqual(t, HashResetToken("abc"), HashResetToken("abd"))
}
