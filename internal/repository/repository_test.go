package repository

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/model"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDatabase(&config.Database{
		Driver:          "sqlite",
		URL:             filepath.Join(t.TempDir(), "shop.db"),
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "x", Role: model.UserRoleUser}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createOrder(t *testing.T, repo OrderRepository, userID uint, createdAt time.Time) *model.Order {
	t.Helper()
	order := &model.Order{
		UserID:      userID,
		ItemType:    model.ItemTypeGPU,
		ItemID:      7,
		ItemName:    "NVIDIA GeForce RTX 4070 Super 12GB",
		AmountCents: 60000,
		Currency:    "eur",
		Status:      model.OrderStatusPending,
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), nil, order))
	return order
}
