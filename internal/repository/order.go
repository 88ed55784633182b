package repository

import (
	"ai-build-shop/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrInvalidOrder = errors.New("invalid order")

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.Order, error)
	FindByCheckoutSessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error)
	FindByCheckoutSessionForUser(ctx context.Context, userID uint, sessionID string) (*model.Order, error)
	FindRecentOpen(ctx context.Context, userID uint, itemType model.ItemType, itemID uint, since time.Time) (*model.Order, error)
	AttachCheckoutSession(ctx context.Context, tx *gorm.DB, orderID uint, sessionID string) (bool, error)
	MarkCheckoutFailed(ctx context.Context, orderID uint) (bool, error)
	Transition(ctx context.Context, tx *gorm.DB, sessionID string, to model.OrderStatus, paymentIntentID string) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]*model.Order, error)
	ListAll(ctx context.Context) ([]*model.AdminOrder, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if order.Status != model.OrderStatusPending {
		return fmt.Errorf("%w: new orders start as %s, got %s", ErrInvalidOrder, model.OrderStatusPending, order.Status)
	}
	if order.AmountCents <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidOrder, order.AmountCents)
	}
	return r.conn(tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByCheckoutSessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).
		Where("checkout_session_id = ?", sessionID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByCheckoutSessionForUser(ctx context.Context, userID uint, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("checkout_session_id = ? AND user_id = ?", sessionID, userID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

// FindRecentOpen returns nil, nil when no open order for the item was created
// at or after since.
func (r *orderRepoImpl) FindRecentOpen(ctx context.Context, userID uint, itemType model.ItemType, itemID uint, since time.Time) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where(`
			user_id = ?
			AND item_type = ?
			AND item_id = ?
			AND status IN ?
			AND created_at >= ?
		`,
			userID,
			itemType,
			itemID,
			model.OpenOrderStatuses,
			since.UTC(),
		).
		Order("created_at DESC, id DESC").
		First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) AttachCheckoutSession(ctx context.Context, tx *gorm.DB, orderID uint, sessionID string) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":              model.OrderStatusCheckoutCreated,
			"checkout_session_id": sessionID,
			"updated_at":          time.Now().UTC(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) MarkCheckoutFailed(ctx context.Context, orderID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":     model.OrderStatusFailed,
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Transition moves the order bound to sessionID into a terminal status. The
// update only matches open orders, so the returned bool is true exactly for
// the one caller that performed the transition. An empty paymentIntentID
// keeps whatever is stored.
func (r *orderRepoImpl) Transition(ctx context.Context, tx *gorm.DB, sessionID string, to model.OrderStatus, paymentIntentID string) (bool, error) {
	if !to.IsTerminal() {
		return false, fmt.Errorf("%w: %s is not a terminal status", ErrInvalidOrder, to)
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if paymentIntentID != "" {
		updates["payment_intent_id"] = paymentIntentID
	}

	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where(`
			checkout_session_id = ?
			AND status IN ?
		`,
			sessionID,
			model.OpenOrderStatuses,
		).
		Updates(updates)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID uint) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *orderRepoImpl) ListAll(ctx context.Context) ([]*model.AdminOrder, error) {
	var orders []*model.AdminOrder
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.*, users.email AS user_email").
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.created_at DESC, orders.id DESC").
		Scan(&orders).Error

	if err != nil {
		return nil, err
	}

	return orders, nil
}
