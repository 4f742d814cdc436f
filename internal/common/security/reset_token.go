package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NewResetToken generates a single-use password reset token. The plaintext is
// handed to the user out-of-band exactly once; only the hash is ever stored.
// SHA-256 rather than bcrypt: the token already carries 256 bits of entropy
// and lives for minutes, so a fast hash is enough.
func NewResetToken() (plaintext string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating reset token: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashResetToken(plaintext), nil
}

// HashResetToken maps a plaintext reset token to its stored form.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
