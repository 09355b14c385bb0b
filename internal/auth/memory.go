package auth

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store used by tests and local runs without a
// database. Semantics mirror PGStore, including the atomic unused->used
// transition on reset-token consume.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*User
	tokens map[string]*ResetToken
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextID: 1,
		users:  make(map[int64]*User),
		tokens: make(map[string]*ResetToken),
	}
}

func (s *MemStore) Users(context.Context) UserStore             { return (*memUserStore)(s) }
func (s *MemStore) ResetTokens(context.Context) ResetTokenStore { return (*memResetTokenStore)(s) }

// ResetTokenIDs lists the ids of all stored reset tokens. Test helper.
func (s *MemStore) ResetTokenIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tokens))
	for id := range s.tokens {
		out = append(out, id)
	}
	return out
}

type memUserStore MemStore

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	u.ID = s.nextID
	s.nextID++
	u.CreatedAt = now
	u.UpdatedAt = now
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *memUserStore) Find(_ context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) List(_ context.Context) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*User, 0, len(s.users))
	for id := int64(1); id < s.nextID; id++ {
		if u, ok := s.users[id]; ok {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memUserStore) UpdateRole(_ context.Context, id int64, role Role) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	clone := *u
	return &clone, nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type memResetTokenStore MemStore

func (s *memResetTokenStore) Create(_ context.Context, tok *ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *tok
	s.tokens[tok.ID] = &clone
	return nil
}

func (s *memResetTokenStore) Find(_ context.Context, id string) (*ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *tok
	return &clone, nil
}

func (s *memResetTokenStore) Consume(_ context.Context, id string, now time.Time, newPasswordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[id]
	if !ok || tok.UsedAt != nil || !tok.ExpiresAt.After(now) {
		return ErrInvalidResetToken
	}
	u, ok := s.users[tok.UserID]
	if !ok {
		return ErrInvalidResetToken
	}
	used := now
	tok.UsedAt = &used
	u.PasswordHash = newPasswordHash
	u.UpdatedAt = now
	return nil
}
