package users

import (
	"context"
	"sync"
	"time"
)

// memStore is an in-memory Store used by the tests. Like the real database,
// it enforces email uniqueness atomically under its lock, so concurrent
// Insert races resolve to exactly one winner.
type memStore struct {
	mu     sync.Mutex
	byID   map[string]User
	emails map[string]string // email -> id
	order  []string
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		byID:   make(map[string]User),
		emails: make(map[string]string),
		clock:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var _ Store = (*memStore)(nil)

func (s *memStore) Insert(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emails[user.Email]; exists {
		return ErrDuplicateEmail
	}
	s.clock = s.clock.Add(time.Second)
	user.CreatedAt = s.clock
	s.byID[user.ID] = *user
	s.emails[user.Email] = user.ID
	s.order = append(s.order, user.ID)
	return nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.byID[id]
	return &user, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *memStore) List(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}
