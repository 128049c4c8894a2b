package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/linkhub/linkhub/internal/model"
)

// MemoryStore is an in-process UserStore. The uniqueness check and insert
// happen under one lock, so concurrent duplicates resolve to one winner.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*model.User
	byEmail    map[string]string // lower(email) -> id
	byUsername map[string]string // username -> id
	now        func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*model.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

// CreateUser inserts the user or returns ErrUsernameTaken / ErrEmailTaken.
func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	emailKey := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return ErrUsernameTaken
	}
	if _, ok := s.byEmail[emailKey]; ok {
		return ErrEmailTaken
	}

	prepareUser(user, s.now())
	stored := *user
	s.byID[stored.ID] = &stored
	s.byEmail[emailKey] = stored.ID
	s.byUsername[stored.Username] = stored.ID
	return nil
}

// GetUserByEmail returns a copy of the user with the given email, ignoring case.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *s.byID[id]
	return &u, nil
}

// GetUserByID returns a copy of the user with the given ID.
func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *stored
	return &u, nil
}

// UpdatePasswordHash replaces the stored hash for id.
func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	stored.PasswordHash = hash
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of stored users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
