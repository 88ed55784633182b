package service

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/metrics"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Triggers that can move an order to a terminal status.
const (
	TriggerWebhook  = "webhook"
	TriggerPoll     = "poll"
	TriggerOperator = "operator"
)

type ReconcileService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookAck, error)
	PollSessionStatus(ctx context.Context, userID uint, sessionID string) (*dto.OrderResponse, error)
	GetReturnView(ctx context.Context, userID uint, sessionID string) (*dto.OrderResponse, error)
	ReconcileSession(ctx context.Context, sessionID string) (*dto.OrderResponse, error)
}

type reconcileServiceImpl struct {
	db               *gorm.DB
	gateway          client.PaymentGateway
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	notifier         NotificationService
	log              *zap.Logger
}

func NewReconcileService(
	db *gorm.DB,
	gateway client.PaymentGateway,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	notifier NotificationService,
	log *zap.Logger,
) ReconcileService {
	return &reconcileServiceImpl{
		db:               db,
		gateway:          gateway,
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		notifier:         notifier,
		log:              log,
	}
}

// HandleWebhook verifies the signature, drops duplicates, checks the event
// against the stored order and applies the transition. The receipt and the
// transition commit together: a rejected event leaves no receipt, so the
// gateway's retry is processed normally.
func (s *reconcileServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookAck, error) {
	event, err := s.gateway.ParseWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, client.ErrInvalidSignature) {
			s.log.Warn("webhook signature rejected", zap.Error(err))
			metrics.RecordWebhook(metrics.WebhookInvalidSignature)
		} else {
			s.log.Error("parse webhook event", zap.Error(err))
			metrics.RecordWebhook(metrics.WebhookError)
		}
		return nil, err
	}

	log := s.log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		metrics.RecordWebhook(metrics.WebhookError)
		return nil, fmt.Errorf("check webhook receipt: %w", err)
	}
	if seen {
		log.Info("duplicate webhook event acknowledged")
		metrics.RecordWebhook(metrics.WebhookDuplicate)
		return &dto.WebhookAck{Received: true, Duplicate: true}, nil
	}

	to, actionable := outcomeForEvent(event)

	var (
		duplicate bool
		changed   bool
		order     *model.Order
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, err := s.webhookEventRepo.Record(ctx, tx, event.ID, event.Type)
		if err != nil {
			return fmt.Errorf("record webhook event: %w", err)
		}
		if !first {
			duplicate = true
			return nil
		}
		if !actionable {
			return nil
		}

		order, err = s.orderForSession(ctx, tx, event.Session)
		if err != nil {
			return err
		}
		if err := verifySession(order, event.Session); err != nil {
			return err
		}

		changed, err = s.orderRepo.Transition(ctx, tx, event.Session.ID, to, event.Session.PaymentIntentID)
		if err != nil {
			return fmt.Errorf("transition order %d to %s: %w", order.ID, to, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVerificationFailed) {
			log.Warn("webhook event failed order verification", zap.Error(err))
			metrics.RecordWebhook(metrics.WebhookRejected)
		} else {
			log.Error("handle webhook event", zap.Error(err))
			metrics.RecordWebhook(metrics.WebhookError)
		}
		return nil, err
	}

	switch {
	case duplicate:
		log.Info("duplicate webhook event acknowledged")
		metrics.RecordWebhook(metrics.WebhookDuplicate)
		return &dto.WebhookAck{Received: true, Duplicate: true}, nil
	case !actionable:
		log.Debug("webhook event ignored")
		metrics.RecordWebhook(metrics.WebhookIgnored)
		return &dto.WebhookAck{Received: true, Ignored: true}, nil
	case !changed:
		log.Info("webhook event left order unchanged", zap.Uint("order_id", order.ID), zap.String("status", order.Status.String()))
		metrics.RecordWebhook(metrics.WebhookNoop)
		return &dto.WebhookAck{Received: true}, nil
	}

	s.afterTransition(ctx, order, to, event.Session.PaymentIntentID, TriggerWebhook)
	metrics.RecordWebhook(metrics.WebhookProcessed)
	return &dto.WebhookAck{Received: true}, nil
}

func (s *reconcileServiceImpl) PollSessionStatus(ctx context.Context, userID uint, sessionID string) (*dto.OrderResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrInvalidInput)
	}

	order, err := s.orderRepo.FindByCheckoutSessionID(ctx, nil, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order by session: %w", err)
	}

	log := s.log.With(zap.Uint("user_id", userID), zap.Uint("order_id", order.ID), zap.String("session_id", sessionID))

	if order.UserID != userID {
		log.Warn("status poll for another user's order")
		return nil, ErrOwnershipMismatch
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		log.Error("retrieve checkout session", zap.Error(err))
		return nil, err
	}
	if session.Metadata[client.MetadataUserID] != strconv.FormatUint(uint64(userID), 10) {
		log.Warn("checkout session metadata names another user", zap.String("metadata_user_id", session.Metadata[client.MetadataUserID]))
		return nil, ErrOwnershipMismatch
	}

	updated, err := s.reconcile(ctx, log, order, session, TriggerPoll)
	if err != nil {
		return nil, err
	}
	return NewOrderResponse(updated), nil
}

// GetReturnView reads the order for the redirect page without contacting the
// gateway. The lookup is scoped to the owner.
func (s *reconcileServiceImpl) GetReturnView(ctx context.Context, userID uint, sessionID string) (*dto.OrderResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrInvalidInput)
	}

	order, err := s.orderRepo.FindByCheckoutSessionForUser(ctx, userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order for user: %w", err)
	}
	return NewOrderResponse(order), nil
}

// ReconcileSession pulls gateway truth for one session on behalf of an
// operator.
func (s *reconcileServiceImpl) ReconcileSession(ctx context.Context, sessionID string) (*dto.OrderResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidInput)
	}

	order, err := s.orderRepo.FindByCheckoutSessionID(ctx, nil, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order by session: %w", err)
	}

	log := s.log.With(zap.Uint("order_id", order.ID), zap.String("session_id", sessionID))

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Metadata[client.MetadataUserID] != strconv.FormatUint(uint64(order.UserID), 10) {
		log.Warn("checkout session metadata does not match order owner")
		return nil, ErrOwnershipMismatch
	}

	updated, err := s.reconcile(ctx, log, order, session, TriggerOperator)
	if err != nil {
		return nil, err
	}
	return NewOrderResponse(updated), nil
}

func (s *reconcileServiceImpl) reconcile(ctx context.Context, log *zap.Logger, order *model.Order, session *client.CheckoutSession, trigger string) (*model.Order, error) {
	to, ok := outcomeForSession(session)
	if !ok || order.Status.IsTerminal() {
		return order, nil
	}

	if err := verifySession(order, session); err != nil {
		log.Warn("checkout session failed order verification", zap.Error(err))
		return nil, err
	}

	changed, err := s.orderRepo.Transition(ctx, nil, session.ID, to, session.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("transition order %d to %s: %w", order.ID, to, err)
	}
	if changed {
		s.afterTransition(ctx, order, to, session.PaymentIntentID, trigger)
	}

	updated, err := s.orderRepo.FindByID(ctx, nil, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order %d: %w", order.ID, err)
	}
	return updated, nil
}

func (s *reconcileServiceImpl) afterTransition(ctx context.Context, order *model.Order, to model.OrderStatus, paymentIntentID, trigger string) {
	order.Status = to
	if paymentIntentID != "" {
		order.PaymentIntentID = &paymentIntentID
	}

	s.log.Info("order transitioned",
		zap.Uint("order_id", order.ID),
		zap.String("status", to.String()),
		zap.String("trigger", trigger),
	)
	metrics.RecordTransition(trigger, to.String())

	if s.notifier != nil {
		s.notifier.OrderTransitioned(ctx, order, trigger)
	}
}

func (s *reconcileServiceImpl) orderForSession(ctx context.Context, tx *gorm.DB, session *client.CheckoutSession) (*model.Order, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: event carries no checkout session", ErrVerificationFailed)
	}

	raw := session.Metadata[client.MetadataOrderID]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("%w: bad order_id metadata %q", ErrVerificationFailed, raw)
	}

	order, err := s.orderRepo.FindByID(ctx, tx, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d does not exist", ErrVerificationFailed, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return order, nil
}

// verifySession checks that the gateway session belongs to the order: the
// stored session id must match, and a reported total and currency must equal
// the stored ones.
func verifySession(order *model.Order, session *client.CheckoutSession) error {
	if order.CheckoutSessionID == nil || *order.CheckoutSessionID != session.ID {
		return fmt.Errorf("%w: session %s is not bound to order %d", ErrVerificationFailed, session.ID, order.ID)
	}
	if raw, ok := session.Metadata[client.MetadataOrderID]; ok && raw != strconv.FormatUint(uint64(order.ID), 10) {
		return fmt.Errorf("%w: session metadata names order %s, not %d", ErrVerificationFailed, raw, order.ID)
	}
	if session.AmountTotal != nil && *session.AmountTotal != order.AmountCents {
		return fmt.Errorf("%w: amount %d does not match order amount %d", ErrVerificationFailed, *session.AmountTotal, order.AmountCents)
	}
	if session.Currency != "" && !strings.EqualFold(session.Currency, order.Currency) {
		return fmt.Errorf("%w: currency %s does not match order currency %s", ErrVerificationFailed, session.Currency, order.Currency)
	}
	return nil
}

func outcomeForEvent(event *client.GatewayEvent) (model.OrderStatus, bool) {
	if event.Session == nil {
		return "", false
	}
	switch event.Type {
	case client.EventCheckoutCompleted:
		return outcomeForSession(event.Session)
	case client.EventCheckoutAsyncPaymentOK:
		return model.OrderStatusPaid, true
	case client.EventCheckoutExpired:
		return model.OrderStatusCanceled, true
	case client.EventCheckoutAsyncPaymentFailed:
		return model.OrderStatusFailed, true
	}
	return "", false
}

// outcomeForSession maps the gateway's view of a session to the terminal
// status it implies. An open session implies nothing yet.
func outcomeForSession(session *client.CheckoutSession) (model.OrderStatus, bool) {
	switch {
	case session.PaymentStatus == client.PaymentStatusPaid,
		session.PaymentStatus == client.PaymentStatusNoPaymentRequired:
		return model.OrderStatusPaid, true
	case session.Status == client.SessionStatusExpired:
		return model.OrderStatusCanceled, true
	case session.Status == client.SessionStatusComplete && session.PaymentStatus == client.PaymentStatusUnpaid:
		return model.OrderStatusFailed, true
	}
	return "", false
}
