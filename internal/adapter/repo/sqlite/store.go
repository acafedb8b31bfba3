// Package sqlite persists users in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"webapi-template/internal/domain/user"
	platform "webapi-template/internal/platform/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements user.Store over database/sql + modernc sqlite.
type Store struct {
	db *sql.DB
}

var _ user.Store = (*Store)(nil)

// New wraps an already opened database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Open opens the database file, applies migrations and returns the store.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := platform.ApplyMigrations(path, migrationsFS, "migrations"); err != nil {
		return nil, err
	}
	db, err := platform.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// Close releases the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

const columns = `id, email, display_name, verified, joined_at`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	var joined string
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Verified, &joined); err != nil {
		return user.User{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, joined)
	if err != nil {
		return user.User{}, fmt.Errorf("sqlite: parse joined_at: %w", err)
	}
	u.JoinedAt = t
	return u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create inserts a new user.
func (s *Store) Create(ctx context.Context, u user.User) (user.User, error) {
	u = u.Normalize()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.JoinedAt.IsZero() {
		u.JoinedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+columns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.Verified, u.JoinedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicate
		}
		return user.User{}, fmt.Errorf("sqlite: insert user: %w", err)
	}
	return u, nil
}

// GetByID returns the user or user.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

// GetByEmail returns the user or user.ErrNotFound.
func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	email = user.User{Email: email}.Normalize().Email
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

// List returns all users ordered by join time.
func (s *Store) List(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM users ORDER BY joined_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list users: %w", err)
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update replaces mutable fields; join time is immutable.
func (s *Store) Update(ctx context.Context, u user.User) (user.User, error) {
	u = u.Normalize()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, display_name = ?, verified = ? WHERE id = ?`,
		u.Email, u.DisplayName, u.Verified, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicate
		}
		return user.User{}, fmt.Errorf("sqlite: update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return s.GetByID(ctx, u.ID)
}

// Delete removes the user or returns user.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
