package service

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/metrics"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutInput struct {
	UserID   uint
	Email    string
	ItemType model.ItemType
	ItemID   uint
	Origin   string // raw Origin header, may be empty
}

type CheckoutConfig struct {
	BaseURL         string
	Currency        string
	ReuseWindow     time.Duration
	ItemDescription string
	Now             func() time.Time
}

type CheckoutService interface {
	StartCheckout(ctx context.Context, in *CheckoutInput) (*dto.CheckoutResponse, error)
}

type checkoutServiceImpl struct {
	gateway     client.PaymentGateway
	catalog     CatalogService
	orderRepo   repository.OrderRepository
	appOrigin   string
	currency    string
	reuseWindow time.Duration
	description string
	now         func() time.Time
	log         *zap.Logger
}

func NewCheckoutService(
	gateway client.PaymentGateway,
	catalog CatalogService,
	orderRepo repository.OrderRepository,
	cfg CheckoutConfig,
	log *zap.Logger,
) (CheckoutService, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &checkoutServiceImpl{
		gateway:     gateway,
		catalog:     catalog,
		orderRepo:   orderRepo,
		appOrigin:   base.Scheme + "://" + base.Host,
		currency:    strings.ToLower(cfg.Currency),
		reuseWindow: cfg.ReuseWindow,
		description: cfg.ItemDescription,
		now:         now,
		log:         log,
	}, nil
}

func (s *checkoutServiceImpl) StartCheckout(ctx context.Context, in *CheckoutInput) (*dto.CheckoutResponse, error) {
	log := s.log.With(
		zap.Uint("user_id", in.UserID),
		zap.String("item_type", string(in.ItemType)),
		zap.Uint("item_id", in.ItemID),
	)

	if err := s.checkOrigin(in.Origin); err != nil {
		log.Warn("checkout origin rejected", zap.String("origin", in.Origin), zap.Error(err))
		metrics.RecordCheckout(metrics.CheckoutRejected)
		return nil, err
	}

	item, err := s.catalog.Resolve(ctx, in.ItemType, in.ItemID)
	if err != nil {
		metrics.RecordCheckout(metrics.CheckoutRejected)
		return nil, err
	}

	// truncated, never rounded up
	amount := item.PriceEur.Mul(decimal.NewFromInt(100)).IntPart()
	if amount <= 0 {
		metrics.RecordCheckout(metrics.CheckoutRejected)
		return nil, fmt.Errorf("%w: %s %d priced at %s", ErrInvalidAmount, item.Type, item.ID, item.PriceEur)
	}

	now := s.now().UTC()
	existing, err := s.orderRepo.FindRecentOpen(ctx, in.UserID, in.ItemType, in.ItemID, now.Add(-s.reuseWindow))
	if err != nil {
		return nil, fmt.Errorf("find reusable order: %w", err)
	}

	if existing != nil {
		if existing.CheckoutSessionID != nil {
			session, err := s.gateway.GetCheckoutSession(ctx, *existing.CheckoutSessionID)
			if err != nil {
				log.Error("retrieve reusable checkout session", zap.Uint("order_id", existing.ID), zap.Error(err))
				metrics.RecordCheckout(metrics.CheckoutGatewayError)
				return nil, err
			}
			if session.Status == client.SessionStatusOpen && session.URL != "" {
				log.Info("reusing open checkout session", zap.Uint("order_id", existing.ID))
				metrics.RecordCheckout(metrics.CheckoutReused)
				return &dto.CheckoutResponse{CheckoutURL: session.URL, Reused: true}, nil
			}
		} else if existing.Status == model.OrderStatusPending {
			// An earlier attempt lost the gateway response. The idempotency key
			// is derived from the order, so this replays rather than duplicates.
			log.Info("retrying checkout session for pending order", zap.Uint("order_id", existing.ID))
			return s.createSession(ctx, log, existing, in.Email, metrics.CheckoutRetried)
		}
	}

	order := &model.Order{
		UserID:      in.UserID,
		ItemType:    in.ItemType,
		ItemID:      in.ItemID,
		ItemName:    item.Name,
		AmountCents: amount,
		Currency:    s.currency,
		Status:      model.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orderRepo.Create(ctx, nil, order); err != nil {
		return nil, fmt.Errorf("store order in db: %w", err)
	}

	return s.createSession(ctx, log, order, in.Email, metrics.CheckoutCreated)
}

func (s *checkoutServiceImpl) createSession(ctx context.Context, log *zap.Logger, order *model.Order, email, outcome string) (*dto.CheckoutResponse, error) {
	orderID := strconv.FormatUint(uint64(order.ID), 10)
	log = log.With(zap.Uint("order_id", order.ID))

	session, err := s.gateway.CreateCheckoutSession(ctx, &client.CreateSessionRequest{
		IdempotencyKey:    IdempotencyKey(order.ID),
		AmountCents:       order.AmountCents,
		Currency:          order.Currency,
		ItemName:          order.ItemName,
		Description:       s.description,
		CustomerEmail:     email,
		SuccessURL:        s.appOrigin + "/checkout/success?session_id=" + client.SessionIDPlaceholder,
		CancelURL:         s.appOrigin + "/checkout/cancel?session_id=" + client.SessionIDPlaceholder,
		ClientReferenceID: orderID,
		Metadata: map[string]string{
			client.MetadataOrderID:  orderID,
			client.MetadataUserID:   strconv.FormatUint(uint64(order.UserID), 10),
			client.MetadataItemType: string(order.ItemType),
			client.MetadataItemID:   strconv.FormatUint(uint64(order.ItemID), 10),
		},
	})
	if err != nil {
		// the order stays PENDING so a retry reuses it
		log.Error("create checkout session", zap.Error(err))
		metrics.RecordCheckout(metrics.CheckoutGatewayError)
		return nil, err
	}

	if session.ID == "" || session.URL == "" {
		if _, markErr := s.orderRepo.MarkCheckoutFailed(ctx, order.ID); markErr != nil {
			log.Error("mark order failed", zap.Error(markErr))
		}
		log.Error("gateway returned an unusable checkout session", zap.String("session_id", session.ID))
		metrics.RecordCheckout(metrics.CheckoutGatewayError)
		return nil, fmt.Errorf("%w: session without id or url", client.ErrGatewayUnavailable)
	}

	attached, err := s.orderRepo.AttachCheckoutSession(ctx, nil, order.ID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("attach checkout session: %w", err)
	}
	if !attached {
		// A concurrent retry of the same order got there first. The gateway
		// deduplicated on the idempotency key, so it must be the same session.
		current, err := s.orderRepo.FindByID(ctx, nil, order.ID)
		if err != nil {
			return nil, fmt.Errorf("reload order: %w", err)
		}
		if current.CheckoutSessionID == nil || *current.CheckoutSessionID != session.ID {
			return nil, fmt.Errorf("order %d is %s and no longer accepts a checkout session", order.ID, current.Status)
		}
	}

	log.Info("checkout session ready", zap.String("session_id", session.ID))
	metrics.RecordCheckout(outcome)
	return &dto.CheckoutResponse{CheckoutURL: session.URL}, nil
}

// checkOrigin accepts a missing Origin header; a present one must match the
// application origin exactly.
func (s *checkoutServiceImpl) checkOrigin(origin string) error {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}
	if u.Scheme+"://"+u.Host != s.appOrigin {
		return fmt.Errorf("%w: %q", ErrOriginNotAllowed, origin)
	}
	return nil
}

func IdempotencyKey(orderID uint) string {
	return "checkout_order_" + strconv.FormatUint(uint64(orderID), 10)
}
