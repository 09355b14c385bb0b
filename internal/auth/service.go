package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"casetrack.org/internal/ids"
	"casetrack.org/internal/obs"
)

const defaultResetTTL = 15 * time.Minute

// ResetMailer dispatches the password-reset email. Implemented by
// internal/mail; kept as an interface here so the service stays testable.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, username, token string) error
}

// Service implements the credential and access-control flow: registration,
// credential verification, token issuance, per-request authentication,
// role checks, administrative user management, and the password-reset flow.
type Service struct {
	store    Store
	tokens   *TokenManager
	mailer   ResetMailer
	resetTTL time.Duration
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithResetTTL overrides the reset token lifetime.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service. The mailer may be nil, in which
// case forgot-password reports delivery failure after issuing the token.
func NewService(store Store, tokens *TokenManager, mailer ResetMailer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token manager is required")
	}
	svc := &Service{
		store:    store,
		tokens:   tokens,
		mailer:   mailer,
		resetTTL: defaultResetTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a new user with the default role. The returned identity
// never carries the password hash.
func (s *Service) Register(ctx context.Context, username, password, email string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email != "" && !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
		Email:        email,
	}
	if err := s.store.Users(ctx).Create(ctx, user); err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// VerifyCredentials resolves username+password to a user, or nil when
// either is wrong. The nil path costs one bcrypt comparison whether or not
// the username exists.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	user, err := s.store.Users(ctx).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnHashComparison(password)
			return nil, nil
		}
		return nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil
	}
	return user.Sanitized(), nil
}

// Login validates credentials and mints a bearer token. Every failure is
// ErrUnauthenticated; the cause is not distinguished.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", time.Time{}, ErrUnauthenticated
	}
	user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}
	if user == nil {
		obs.AuthFailure("bad_credentials")
		return "", time.Time{}, ErrUnauthenticated
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Authenticate verifies a bearer token and re-resolves the live user by
// subject id, so role changes and deletions take effect on the next
// request rather than at token expiry.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		obs.AuthFailure("invalid_token")
		return nil, ErrUnauthenticated
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.AuthFailure("user_gone")
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

// Authorize checks the authenticated user against a required role. The
// switch is exhaustive over the closed role set.
func Authorize(user *User, required Role) error {
	if user == nil {
		return ErrUnauthenticated
	}
	switch required {
	case RoleUser:
		// Any authenticated identity qualifies.
		return nil
	case RoleAdmin:
		if user.Role == RoleAdmin {
			return nil
		}
		return ErrForbidden
	default:
		return fmt.Errorf("%w: unknown required role %q", ErrInvalidInput, required)
	}
}

// Users lists all identities. Caller must already be authorized.
func (s *Service) Users(ctx context.Context) ([]*User, error) {
	users, err := s.store.Users(ctx).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

// UserByID returns a single identity.
func (s *Service) UserByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UpdateRole changes a target user's role and returns the updated record.
func (s *Service) UpdateRole(ctx context.Context, id int64, role Role) (*User, error) {
	if _, err := ParseRole(role.String()); err != nil {
		return nil, err
	}
	user, err := s.store.Users(ctx).UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// Remove deletes a user. ErrNotFound when the id does not exist.
func (s *Service) Remove(ctx context.Context, id int64) error {
	return s.store.Users(ctx).Delete(ctx, id)
}

// ForgotPassword issues a single-use reset token and mails it. When the
// username+email pair does not match an account the call still returns nil:
// account existence is withheld from the caller. A delivery failure is the
// one exception, reported as ErrMailDelivery while the token stays valid
// for its window.
func (s *Service) ForgotPassword(ctx context.Context, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" {
		return fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if user.Email == "" || user.Email != email {
		return nil
	}

	token, rec, err := s.generateResetToken(user.ID)
	if err != nil {
		return err
	}
	if err := s.store.ResetTokens(ctx).Create(ctx, rec); err != nil {
		return err
	}
	if s.mailer == nil {
		return ErrMailDelivery
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Username, token); err != nil {
		obs.Logger().Printf(`{"level":"error","msg":"reset mail dispatch failed","user_id":%d}`, user.ID)
		return ErrMailDelivery
	}
	return nil
}

// ResetPassword consumes a reset token exactly once and replaces the
// owner's credential. Unknown, expired, spent, and forged tokens all fail
// with the same generic error.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	id, secret, err := splitResetToken(token)
	if err != nil {
		return ErrInvalidResetToken
	}
	rec, err := s.store.ResetTokens(ctx).Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !secureCompareHash(rec.SecretHash, secret) {
		return ErrInvalidResetToken
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.ResetTokens(ctx).Consume(ctx, rec.ID, s.now().UTC(), hash)
}

func (s *Service) generateResetToken(userID int64) (string, *ResetToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	now := s.now().UTC()
	rec := &ResetToken{
		ID:         tokenID,
		UserID:     userID,
		SecretHash: hex.EncodeToString(sum[:]),
		ExpiresAt:  now.Add(s.resetTTL),
		CreatedAt:  now,
	}
	return tokenID + "." + secret, rec, nil
}

func splitResetToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid reset token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
