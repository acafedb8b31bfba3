// Package postgres persists users in PostgreSQL via pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"webapi-template/internal/domain/user"
	"webapi-template/internal/platform/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements user.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ user.Store = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Open connects to the database, applies migrations and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := pg.ApplyMigrations(dsn, migrationsFS, "migrations"); err != nil {
		return nil, err
	}
	pool, err := pg.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

const columns = `id, email, display_name, verified, joined_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Verified, &u.JoinedAt); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// uniqueViolation is the PostgreSQL error code for unique-constraint breaks.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+columns+`) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.DisplayName, u.Verified, u.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicate
		}
		return user.User{}, fmt.Errorf("postgres: insert user: %w", err)
	}
	return u, nil
}

// GetByID returns the user or user.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (user.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

// GetByEmail returns the user or user.ErrNotFound.
func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	email = user.User{Email: email}.Normalize().Email
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
}

// List returns all users ordered by join time.
func (s *Store) List(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+columns+` FROM users ORDER BY joined_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
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

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET email = $1, display_name = $2, verified = $3 WHERE id = $4`,
		u.Email, u.DisplayName, u.Verified, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrDuplicate
		}
		return user.User{}, fmt.Errorf("postgres: update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.User{}, user.ErrNotFound
	}
	return s.GetByID(ctx, u.ID)
}

// Delete removes the user or returns user.ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
