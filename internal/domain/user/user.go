// Package user holds the user entity and its persistence port.
package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors returned by Store implementations. Adapters translate
// them into the application error taxonomy at the HTTP boundary.
var (
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate indicates a user with the same email already exists.
	ErrDuplicate = errors.New("user already exists")
)

// User is the persisted account record.
type User struct {
	ID          string
	Email       string
	DisplayName string
	JoinedAt    time.Time
	Verified    bool
}

// Normalize lowercases and trims the email. Store implementations call it
// before writes so lookups by email are case-insensitive.
func (u User) Normalize() User {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return u
}

// Store is the persistence port for users.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id string) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
