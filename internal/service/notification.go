package service

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OrderEvent is published for every terminal transition.
type OrderEvent struct {
	Type            string    `json:"type"`
	OrderID         uint      `json:"orderId"`
	UserID          uint      `json:"userId"`
	ItemType        string    `json:"itemType"`
	ItemID          uint      `json:"itemId"`
	AmountCents     int64     `json:"amountCents"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	Trigger         string    `json:"trigger"`
	OccurredAt      time.Time `json:"occurredAt"`
}

type NotificationService interface {
	// OrderTransitioned must only be called by the caller whose update moved
	// the order into its terminal status.
	OrderTransitioned(ctx context.Context, order *model.Order, trigger string)
	// Wait blocks until queued events and emails have been attempted.
	Wait()
}

type notificationServiceImpl struct {
	userRepo  repository.UserRepository
	mailer    client.Mailer         // nil when SMTP is not configured
	publisher client.EventPublisher // nil when Kafka is not configured
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewNotificationService(userRepo repository.UserRepository, mailer client.Mailer, publisher client.EventPublisher, log *zap.Logger) NotificationService {
	return &notificationServiceImpl{
		userRepo:  userRepo,
		mailer:    mailer,
		publisher: publisher,
		log:       log,
	}
}

func (s *notificationServiceImpl) OrderTransitioned(ctx context.Context, order *model.Order, trigger string) {
	log := s.log.With(zap.Uint("order_id", order.ID), zap.String("status", order.Status.String()))

	if s.publisher != nil {
		event := &OrderEvent{
			Type:        "order." + strings.ToLower(order.Status.String()),
			OrderID:     order.ID,
			UserID:      order.UserID,
			ItemType:    string(order.ItemType),
			ItemID:      order.ItemID,
			AmountCents: order.AmountCents,
			Currency:    order.Currency,
			Status:      order.Status.String(),
			Trigger:     trigger,
			OccurredAt:  time.Now().UTC(),
		}
		if order.PaymentIntentID != nil {
			event.PaymentIntentID = *order.PaymentIntentID
		}

		// A slow broker must not hold up the webhook ack.
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.publisher.Publish(context.WithoutCancel(ctx), strconv.FormatUint(uint64(order.ID), 10), event); err != nil {
				log.Error("publish order event", zap.Error(err))
			}
		}()
	}

	if order.Status != model.OrderStatusPaid {
		return
	}
	if s.mailer == nil {
		log.Info("payment confirmation email skipped: SMTP config missing")
		return
	}

	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		log.Error("load order owner for confirmation email", zap.Error(err))
		return
	}

	msg, err := paymentConfirmation(user.Email, order)
	if err != nil {
		log.Error("render confirmation email", zap.Error(err))
		return
	}

	// Same for SMTP.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		if err := s.mailer.Send(sendCtx, msg); err != nil {
			log.Error("send payment confirmation email", zap.Error(err))
			return
		}
		log.Info("payment confirmation email sent")
	}()
}

func (s *notificationServiceImpl) Wait() {
	s.wg.Wait()
}

var confirmationHTML = template.Must(template.New("confirmation").Parse(`<p>Thanks for your preorder.</p>
<p><strong>Order ID:</strong> {{.ID}}</p>
<p><strong>Item:</strong> {{.ItemName}}</p>
<p><strong>Amount:</strong> EUR {{.Amount}}</p>
<p><strong>Placed at:</strong> {{.PlacedAt}}</p>
<p>We will assemble and configure your system after payment confirmation.</p>
`))

func paymentConfirmation(to string, order *model.Order) (*client.MailMessage, error) {
	data := struct {
		ID       uint
		ItemName string
		Amount   string
		PlacedAt string
	}{
		ID:       order.ID,
		ItemName: order.ItemName,
		Amount:   FormatEur(order.AmountCents),
		PlacedAt: order.CreatedAt.UTC().Format(time.RFC3339),
	}

	var html bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return nil, err
	}

	text := strings.Join([]string{
		"Thanks for your preorder.",
		"",
		fmt.Sprintf("Order ID: %d", data.ID),
		fmt.Sprintf("Item: %s", data.ItemName),
		fmt.Sprintf("Amount: EUR %s", data.Amount),
		fmt.Sprintf("Placed at: %s", data.PlacedAt),
		"",
		"We will assemble and configure your system after payment confirmation.",
	}, "\n")

	return &client.MailMessage{
		To:      to,
		Subject: fmt.Sprintf("Order #%d payment received", order.ID),
		Text:    text,
		HTML:    html.String(),
	}, nil
}
