package repository

import (
	"ai-build-shop/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAuthSessionRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuthSessionRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "buyer@example.com")
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &model.AuthSession{
		UserID:    user.ID,
		TokenID:   "jti-1",
		ExpiresAt: now.Add(time.Hour),
	}))

	got, err := repo.FindActive(ctx, "jti-1", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	_, err = repo.FindActive(ctx, "jti-1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Invalidate(ctx, "jti-1", now))
	_, err = repo.FindActive(ctx, "jti-1", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_AdminExists(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	exists, err := repo.AdminExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, &model.User{Email: "admin@example.com", PasswordHash: "x", Role: model.UserRoleAdmin}))

	exists, err = repo.AdminExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleAdmin, got.Role)
}
