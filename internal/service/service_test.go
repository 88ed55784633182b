package service

import (
	"ai-build-shop/internal/client"
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const testBaseURL = "https://shop.example.com"

// fakeGateway is an in-memory hosted checkout. It honours idempotency keys the
// way the real gateway does.
type fakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*client.CheckoutSession
	byKey    map[string]string
	requests []*client.CreateSessionRequest
	seq      int

	createErr    error
	getErr       error
	emptySession bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: map[string]*client.CheckoutSession{},
		byKey:    map[string]string{},
	}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req *client.CreateSessionRequest) (*client.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.emptySession {
		return &client.CheckoutSession{}, nil
	}
	if id, ok := g.byKey[req.IdempotencyKey]; ok {
		return g.copyOf(id), nil
	}

	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	amount := req.AmountCents
	g.sessions[id] = &client.CheckoutSession{
		ID:            id,
		URL:           "https://checkout.stripe.test/c/pay/" + id,
		Status:        client.SessionStatusOpen,
		PaymentStatus: client.PaymentStatusUnpaid,
		AmountTotal:   &amount,
		Currency:      req.Currency,
		Metadata:      maps.Clone(req.Metadata),
	}
	g.byKey[req.IdempotencyKey] = id
	return g.copyOf(id), nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*client.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.getErr != nil {
		return nil, g.getErr
	}
	if _, ok := g.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("%w: no such checkout session", client.ErrGatewayRejected)
	}
	return g.copyOf(sessionID), nil
}

// ParseWebhookEvent accepts JSON-encoded GatewayEvents signed with "valid".
func (g *fakeGateway) ParseWebhookEvent(payload []byte, signature string) (*client.GatewayEvent, error) {
	if signature != "valid" {
		return nil, client.ErrInvalidSignature
	}
	var event client.GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrInvalidSignature, err)
	}
	return &event, nil
}

func (g *fakeGateway) update(sessionID string, fn func(s *client.CheckoutSession)) *client.CheckoutSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.sessions[sessionID])
	return g.copyOf(sessionID)
}

func (g *fakeGateway) pay(sessionID string) *client.CheckoutSession {
	return g.update(sessionID, func(s *client.CheckoutSession) {
		s.Status = client.SessionStatusComplete
		s.PaymentStatus = client.PaymentStatusPaid
		s.PaymentIntentID = "pi_" + sessionID
	})
}

func (g *fakeGateway) expire(sessionID string) *client.CheckoutSession {
	return g.update(sessionID, func(s *client.CheckoutSession) {
		s.Status = client.SessionStatusExpired
	})
}

func (g *fakeGateway) createCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGateway) copyOf(id string) *client.CheckoutSession {
	s := *g.sessions[id]
	s.Metadata = maps.Clone(s.Metadata)
	if s.AmountTotal != nil {
		amount := *s.AmountTotal
		s.AmountTotal = &amount
	}
	return &s
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*client.MailMessage
}

func (m *fakeMailer) Send(_ context.Context, msg *client.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []*client.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*client.MailMessage(nil), m.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*OrderEvent
	gate   chan struct{} // when set, Publish blocks until it is closed
}

func (p *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(*OrderEvent))
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []*OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*OrderEvent(nil), p.events...)
}

type harness struct {
	db        *gorm.DB
	gateway   *fakeGateway
	mailer    *fakeMailer
	publisher *fakePublisher
	orders    repository.OrderRepository
	events    repository.WebhookEventRepository
	users     repository.UserRepository
	notifier  NotificationService
	catalog   CatalogService
	checkout  CheckoutService
	reconcile ReconcileService
	now       time.Time
}

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
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := zaptest.NewLogger(t)
	db := newTestDB(t)
	require.NoError(t, repository.NewCatalogRepository(db).Seed(context.Background()))

	h := &harness{
		db:        db,
		gateway:   newFakeGateway(),
		mailer:    &fakeMailer{},
		publisher: &fakePublisher{},
		orders:    repository.NewOrderRepository(db),
		events:    repository.NewWebhookEventRepository(db),
		users:     repository.NewUserRepository(db),
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	h.notifier = NewNotificationService(h.users, h.mailer, h.publisher, log)
	h.catalog = NewCatalogService(repository.NewCatalogRepository(db), nil, 0, log)

	checkout, err := NewCheckoutService(h.gateway, h.catalog, h.orders, CheckoutConfig{
		BaseURL:     testBaseURL,
		Currency:    "EUR",
		ReuseWindow: 30 * time.Minute,
		Now:         func() time.Time { return h.now },
	}, log)
	require.NoError(t, err)
	h.checkout = checkout

	h.reconcile = NewReconcileService(db, h.gateway, h.orders, h.events, h.notifier, log)
	return h
}

func (h *harness) createUser(t *testing.T, id uint, email string) *model.User {
	t.Helper()
	user := &model.User{ID: id, Email: email, PasswordHash: "x", Role: model.UserRoleUser}
	require.NoError(t, h.users.Create(context.Background(), user))
	return user
}

// startCheckout runs a checkout and returns the session id the order was bound to.
func (h *harness) startCheckout(t *testing.T, user *model.User, itemType model.ItemType, itemID uint) (string, *model.Order) {
	t.Helper()

	resp, err := h.checkout.StartCheckout(context.Background(), &CheckoutInput{
		UserID:   user.ID,
		Email:    user.Email,
		ItemType: itemType,
		ItemID:   itemID,
		Origin:   testBaseURL,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.CheckoutURL)

	orders, err := h.orders.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, orders)
	order := orders[0]
	require.NotNil(t, order.CheckoutSessionID)
	return *order.CheckoutSessionID, order
}

func (h *harness) order(t *testing.T, id uint) *model.Order {
	t.Helper()
	order, err := h.orders.FindByID(context.Background(), nil, id)
	require.NoError(t, err)
	return order
}

func webhookPayload(t *testing.T, eventID, eventType string, session *client.CheckoutSession) []byte {
	t.Helper()
	payload, err := json.Marshal(&client.GatewayEvent{ID: eventID, Type: eventType, Session: session})
	require.NoError(t, err)
	return payload
}
