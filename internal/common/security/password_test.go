package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}

func TestHashPassword_SaltRandomized(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("secret123")
	require.NoError(t, err)
	second, err := HashPassword("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same plaintext must produce different digests")
	assert.True(t, CheckPasswordHash("secret123", first))
	assert.True(t, CheckPasswordHash("secret123", second))
}

func TestCheckPasswordHash_GarbageDigest(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckPasswordHash("anything", "not-a-bcrypt-digest"))
	assert.False(t, CheckPasswordHash("anything", ""))
}
