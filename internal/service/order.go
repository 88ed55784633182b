package service

import (
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderService interface {
	ListMine(ctx context.Context, userID uint) (*dto.OrderListResponse, error)
	ListAll(ctx context.Context) (*dto.OrderListResponse, error)
}

type orderServiceImpl struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) OrderService {
	return &orderServiceImpl{
		orderRepo: orderRepo,
	}
}

func (s *orderServiceImpl) ListMine(ctx context.Context, userID uint) (*dto.OrderListResponse, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}

	resp := &dto.OrderListResponse{Orders: make([]*dto.OrderResponse, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = NewOrderResponse(o)
	}
	return resp, nil
}

func (s *orderServiceImpl) ListAll(ctx context.Context) (*dto.OrderListResponse, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}

	resp := &dto.OrderListResponse{Orders: make([]*dto.OrderResponse, len(orders))}
	for i, o := range orders {
		r := NewOrderResponse(&o.Order)
		r.UserEmail = o.UserEmail
		resp.Orders[i] = r
	}
	return resp, nil
}

func NewOrderResponse(o *model.Order) *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:          o.ID,
		ItemType:    string(o.ItemType),
		ItemID:      o.ItemID,
		ItemName:    o.ItemName,
		BuildName:   o.ItemName,
		AmountCents: o.AmountCents,
		AmountEur:   FormatEur(o.AmountCents),
		Currency:    o.Currency,
		Status:      o.Status.String(),
		CreatedAt:   o.CreatedAt,
	}
}

// FormatEur renders integer cents as a two-decimal amount, e.g. 60000 -> "600.00".
func FormatEur(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
