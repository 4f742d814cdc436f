package security

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost keeps verification in the tens of milliseconds range so that
// offline brute-forcing of leaked digests stays expensive.
const bcryptCost = 12

// HashPassword returns a salted bcrypt digest of the plaintext. The salt is
// generated per call, so hashing the same password twice yields different
// digests.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash reports whether the plaintext matches the stored digest.
// A mismatch is a normal outcome, not an error.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
