package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of access levels a user can hold. Exactly one role
// per user; unknown values are rejected at the boundary by ParseRole.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// User is an identity record. PasswordHash never leaves the auth package:
// the json tag keeps it out of every external representation.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sanitized returns a copy safe to hand outside the store boundary.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// ResetToken is the persisted half of a password-reset token. Only the
// sha256 of the client-held secret is stored; the full token string handed
// to the user is "<id>.<secret>".
type ResetToken struct {
	ID         string
	UserID     int64
	SecretHash string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UsedAt     *time.Time
}
