package model

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// ValidRole reports membership in the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	HashedPassword string `json:"-"` // Not exposed

	// Set on every successful password mutation; tokens issued before this
	// instant are rejected by the session guard.
	PasswordChangedAt *time.Time `json:"-"`

	// Outstanding reset token, stored hashed. Both fields absent unless a
	// reset is in flight.
	PasswordResetTokenHash *string    `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordChangedAfter reports whether the password was changed after the
// given token issuance instant. Comparison is at second precision because
// JWT iat claims carry unix seconds.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}
