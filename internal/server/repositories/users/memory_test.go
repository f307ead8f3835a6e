package users

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)

	u, err := repo.Create(ctx, &models.User{Identity: "id-1", Email: "a@example.com", PasswordHash: "h", Status: models.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	_, err = repo.Create(ctx, &models.User{Identity: "id-2", Email: "a@example.com"})
	assert.ErrorIs(t, err, common.ErrEmailInUse)

	// a second repository over the same store sees the same data
	other := NewMemoryRepository(store)
	got, err := other.GetByIdentity(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	got.FullName = "Changed"
	got.Status = models.StatusInactive
	require.NoError(t, repo.Update(ctx, got))
	require.NoError(t, repo.UpdatePassword(ctx, got.ID, "h2"))

	again, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Changed", again.FullName)
	assert.Equal(t, models.StatusInactive, again.Status)
	assert.Equal(t, "h2", again.PasswordHash)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, 99, "x"), common.ErrorNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())

	u, err := repo.Create(ctx, &models.User{Identity: "id-1", Email: "a@example.com"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.FullName = "mutated"

	fresh, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.FullName)
}
