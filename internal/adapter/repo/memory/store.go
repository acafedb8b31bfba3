// Package memory is an in-memory user store, safe for concurrent use.
// It backs tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"webapi-template/internal/domain/user"
)

// Store keeps users in process memory.
type Store struct {
	mu      sync.RWMutex
	users   map[string]user.User
	byEmail map[string]string
}

var _ user.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

// Create stores a new user. A missing ID is generated, a missing JoinedAt is
// set to now. Returns user.ErrDuplicate when the email is taken.
func (s *Store) Create(_ context.Context, u user.User) (user.User, error) {
	u = u.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return user.User{}, user.ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, user.ErrDuplicate
	}
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now().UTC()
	}

	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

// GetByID returns the user or user.ErrNotFound.
func (s *Store) GetByID(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// GetByEmail returns the user or user.ErrNotFound.
func (s *Store) GetByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[user.User{Email: email}.Normalize().Email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return s.users[id], nil
}

// List returns all users ordered by join time, then ID for stability.
func (s *Store) List(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update replaces mutable fields of an existing user. Email changes that
// collide with another user return user.ErrDuplicate.
func (s *Store) Update(_ context.Context, u user.User) (user.User, error) {
	u = u.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if u.Email != cur.Email {
		if _, taken := s.byEmail[u.Email]; taken {
			return user.User{}, user.ErrDuplicate
		}
		delete(s.byEmail, cur.Email)
		s.byEmail[u.Email] = u.ID
	}

	u.JoinedAt = cur.JoinedAt
	s.users[u.ID] = u
	return u, nil
}

// Delete removes the user or returns user.ErrNotFound.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
