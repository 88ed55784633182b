package client

import (
	"ai-build-shop/internal/config"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	stripeclient "github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

var (
	ErrGatewayMisconfigured = errors.New("payment gateway is not configured")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrGatewayRejected      = errors.New("payment gateway rejected the request")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

type SessionStatus string

const (
	SessionStatusOpen     SessionStatus = "open"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusExpired  SessionStatus = "expired"
)

type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// Webhook event types the reconciliation engine acts on.
const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventCheckoutExpired            = "checkout.session.expired"
)

// Metadata keys embedded in every hosted session.
const (
	MetadataOrderID  = "order_id"
	MetadataUserID   = "user_id"
	MetadataItemType = "item_type"
	MetadataItemID   = "item_id"
)

// SessionIDPlaceholder is substituted by the gateway in redirect URLs.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

type CheckoutSession struct {
	ID              string
	URL             string
	Status          SessionStatus
	PaymentStatus   PaymentStatus
	AmountTotal     *int64 // nil when the gateway did not report a total
	Currency        string
	PaymentIntentID string
	Metadata        map[string]string
}

type CreateSessionRequest struct {
	IdempotencyKey    string
	AmountCents       int64
	Currency          string
	ItemName          string
	Description       string
	CustomerEmail     string
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	Metadata          map[string]string
}

type GatewayEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession // nil for non checkout-session events
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ParseWebhookEvent(payload []byte, signature string) (*GatewayEvent, error)
}

type stripeGatewayImpl struct {
	api           *stripeclient.API
	webhookSecret string
}

// NewStripeGateway never fails: a missing secret key or webhook secret turns
// the affected calls into ErrGatewayMisconfigured so the rest of the site keeps
// serving.
func NewStripeGateway(cfg *config.Stripe, log *zap.Logger) PaymentGateway {
	g := &stripeGatewayImpl{
		webhookSecret: cfg.WebhookSecret,
	}
	if cfg.SecretKey == "" {
		return g
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     log.Sugar(),
	}
	if cfg.APIBaseURL != "" {
		backendCfg.URL = stripe.String(cfg.APIBaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	g.api = &stripeclient.API{}
	g.api.Init(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return g
}

func (g *stripeGatewayImpl) CreateCheckoutSession(ctx context.Context, req *CreateSessionRequest) (*CheckoutSession, error) {
	if g.api == nil {
		return nil, ErrGatewayMisconfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		BillingAddressCollection: stripe.String("auto"),
		SubmitType:               stripe.String("pay"),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		ClientReferenceID:        stripe.String(req.ClientReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ItemName),
						Description: stripe.String(req.Description),
					},
				},
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Metadata = req.Metadata
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapStripeError("create checkout session", err)
	}

	return toCheckoutSession(s), nil
}

func (g *stripeGatewayImpl) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if g.api == nil {
		return nil, ErrGatewayMisconfigured
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, mapStripeError("retrieve checkout session", err)
	}

	return toCheckoutSession(s), nil
}

func (g *stripeGatewayImpl) ParseWebhookEvent(payload []byte, signature string) (*GatewayEvent, error) {
	if g.webhookSecret == "" {
		return nil, ErrGatewayMisconfigured
	}
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &GatewayEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if !strings.HasPrefix(out.Type, "checkout.session.") || event.Data == nil {
		return out, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	// amount_total is nullable; stripe.CheckoutSession flattens null to 0.
	var totals struct {
		AmountTotal *int64 `json:"amount_total"`
	}
	if err := json.Unmarshal(event.Data.Raw, &totals); err != nil {
		return nil, fmt.Errorf("decode checkout session totals: %w", err)
	}

	out.Session = toCheckoutSession(&s)
	out.Session.AmountTotal = totals.AmountTotal
	return out, nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	amount := s.AmountTotal
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        SessionStatus(s.Status),
		PaymentStatus: PaymentStatus(s.PaymentStatus),
		AmountTotal:   &amount,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}

// mapStripeError sorts failures into retryable (timeouts, network, 429, 5xx)
// and rejected (other 4xx).
func mapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%s: %w: %s", op, ErrGatewayUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("%s: %w: %s", op, ErrGatewayRejected, stripeErr.Msg)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrGatewayUnavailable, err)
}
