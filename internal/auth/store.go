package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	ResetTokens(ctx context.Context) ResetTokenStore
}

// UserStore manages identity records.
type UserStore interface {
	// Create persists a new user and fills in ID and timestamps.
	// Returns ErrConflict when the username is already taken.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id int64, role Role) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// Delete returns ErrNotFound when no row was affected.
	Delete(ctx context.Context, id int64) error
}

// ResetTokenStore manages single-use password reset tokens.
type ResetTokenStore interface {
	Create(ctx context.Context, tok *ResetToken) error
	Find(ctx context.Context, id string) (*ResetToken, error)
	// Consume atomically flips the token from unused to used and replaces
	// the owner's password hash in the same transaction. The unused->used
	// transition is a single conditional write: of two concurrent consume
	// attempts exactly one sees a row flip and succeeds, the other gets
	// ErrInvalidResetToken.
	Consume(ctx context.Context, id string, now time.Time, newPasswordHash string) error
}
