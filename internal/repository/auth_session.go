package repository

import (
	"ai-build-shop/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type AuthSessionRepository interface {
	Create(ctx context.Context, session *model.AuthSession) error
	FindActive(ctx context.Context, tokenID string, now time.Time) (*model.AuthSession, error)
	Invalidate(ctx context.Context, tokenID string, now time.Time) error
}

type authSessionRepoImpl struct {
	db *gorm.DB
}

func NewAuthSessionRepository(db *gorm.DB) AuthSessionRepository {
	return &authSessionRepoImpl{
		db: db,
	}
}

func (r *authSessionRepoImpl) Create(ctx context.Context, session *model.AuthSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindActive ignores sessions that were logged out or have expired.
func (r *authSessionRepoImpl) FindActive(ctx context.Context, tokenID string, now time.Time) (*model.AuthSession, error) {
	var session model.AuthSession
	err := r.db.WithContext(ctx).
		Where("token_id = ? AND invalidated_at IS NULL AND expires_at > ?", tokenID, now.UTC()).
		First(&session).Error

	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *authSessionRepoImpl) Invalidate(ctx context.Context, tokenID string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.AuthSession{}).
		Where("token_id = ? AND invalidated_at IS NULL", tokenID).
		Update("invalidated_at", now.UTC()).Error
}
