package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webapi-template/internal/adapter/repo/memory"
	"webapi-template/internal/domain/user"
)

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	created, err := s.Create(ctx, user.User{Email: "Ada@Example.com", DisplayName: "Ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.False(t, created.JoinedAt.IsZero())

	got, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	byEmail, err := s.GetByEmail(ctx, "ADA@example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.Create(ctx, user.User{Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = s.Create(ctx, user.User{Email: "ada@example.com"})
	assert.ErrorIs(t, err, user.ErrDuplicate)
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = s.GetByEmail(ctx, "nope@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"c@example.com", "a@example.com", "b@example.com"} {
		_, err := s.Create(ctx, user.User{
			Email:    email,
			JoinedAt: base.Add(time.Duration(len("abc")-i) * time.Hour),
		})
		require.NoError(t, err)
	}

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "b@example.com", users[0].Email)
	assert.Equal(t, "a@example.com", users[1].Email)
	assert.Equal(t, "c@example.com", users[2].Email)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	created, err := s.Create(ctx, user.User{Email: "ada@example.com", DisplayName: "Ada"})
	require.NoError(t, err)

	created.DisplayName = "Countess"
	updated, err := s.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Countess", updated.DisplayName)
	assert.Equal(t, created.JoinedAt, updated.JoinedAt)

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Update(ctx, user.User{ID: "ghost", Email: "g@example.com"})
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("email collision", func(t *testing.T) {
		other, err := s.Create(ctx, user.User{Email: "grace@example.com"})
		require.NoError(t, err)

		other.Email = "ada@example.com"
		_, err = s.Update(ctx, other)
		assert.ErrorIs(t, err, user.ErrDuplicate)
	})

	t.Run("email change rebinds index", func(t *testing.T) {
		created.Email = "lovelace@example.com"
		_, err := s.Update(ctx, created)
		require.NoError(t, err)

		_, err = s.GetByEmail(ctx, "ada@example.com")
		assert.ErrorIs(t, err, user.ErrNotFound)

		got, err := s.GetByEmail(ctx, "lovelace@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	created, err := s.Create(ctx, user.User{Email: "ada@example.com"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, created.ID), user.ErrNotFound)

	// Email becomes available again.
	_, err = s.Create(ctx, user.User{Email: "ada@example.com"})
	assert.NoError(t, err)
}
