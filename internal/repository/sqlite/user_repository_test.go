package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentai/internal/domain"
)

func openTestDB(t *testing.T) *UserRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := &UserRepository{db: db}
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	user := &domain.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
	}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "Alice", byEmail.Name)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	_, err := repo.Create(ctx, &domain.User{Name: "A", Email: "a@b.com", PasswordHash: "h1"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Name: "B", Email: "a@b.com", PasswordHash: "h2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	_, err := repo.GetByEmail(ctx, "missing@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = repo.GetByID(ctx, 123)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
