package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: already exists")
	ErrInvalidInput    = errors.New("auth: invalid input")
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: forbidden")

	// ErrInvalidResetToken deliberately covers every reset-consume failure
	// (unknown, expired, already used, bad secret) so the client cannot use
	// the error as an oracle.
	ErrInvalidResetToken = errors.New("auth: invalid or expired reset token")

	// ErrMailDelivery is returned when the reset email could not be
	// dispatched. The issued token stays valid for its window.
	ErrMailDelivery = errors.New("auth: reset email delivery failed")
)
