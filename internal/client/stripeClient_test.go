package client

import (
	"ai-build-shop/internal/config"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T, handler http.HandlerFunc) PaymentGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewStripeGateway(&config.Stripe{
		SecretKey:         "sk_test_123",
		WebhookSecret:     testWebhookSecret,
		APIBaseURL:        srv.URL,
		Currency:          "eur",
		Timeout:           5 * time.Second,
		MaxNetworkRetries: 0,
	}, zaptest.NewLogger(t))
}

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	var gotKey string
	var gotForm map[string]string

	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())

		gotKey = r.Header.Get("Idempotency-Key")
		gotForm = map[string]string{
			"amount":   r.PostForm.Get("line_items[0][price_data][unit_amount]"),
			"currency": r.PostForm.Get("line_items[0][price_data][currency]"),
			"order_id": r.PostForm.Get("metadata[order_id]"),
			"user_id":  r.PostForm.Get("metadata[user_id]"),
			"success":  r.PostForm.Get("success_url"),
			"email":    r.PostForm.Get("customer_email"),
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_1",
			"object": "checkout.session",
			"url": "https://checkout.stripe.com/c/pay/cs_test_1",
			"status": "open",
			"payment_status": "unpaid",
			"amount_total": 60000,
			"currency": "eur",
			"metadata": {"order_id": "1", "user_id": "42"}
		}`))
	})

	session, err := gw.CreateCheckoutSession(context.Background(), &CreateSessionRequest{
		IdempotencyKey: "checkout_order_1",
		AmountCents:    60000,
		Currency:       "eur",
		ItemName:       "RTX 4070 Super",
		Description:    "AI build preorder",
		CustomerEmail:  "buyer@example.com",
		SuccessURL:     "http://localhost:8080/checkout/success?session_id=" + SessionIDPlaceholder,
		CancelURL:      "http://localhost:8080/checkout/cancel?session_id=" + SessionIDPlaceholder,
		Metadata: map[string]string{
			MetadataOrderID: "1",
			MetadataUserID:  "42",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "checkout_order_1", gotKey)
	assert.Equal(t, "60000", gotForm["amount"])
	assert.Equal(t, "eur", gotForm["currency"])
	assert.Equal(t, "1", gotForm["order_id"])
	assert.Equal(t, "42", gotForm["user_id"])
	assert.Contains(t, gotForm["success"], SessionIDPlaceholder)
	assert.Equal(t, "buyer@example.com", gotForm["email"])

	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)
	assert.Equal(t, SessionStatusOpen, session.Status)
	require.NotNil(t, session.AmountTotal)
	assert.Equal(t, int64(60000), *session.AmountTotal)
}

func TestStripeGateway_GetCheckoutSession(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/checkout/sessions/cs_test_2", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_2",
			"object": "checkout.session",
			"status": "complete",
			"payment_status": "paid",
			"amount_total": 60000,
			"payment_intent": "pi_123",
			"metadata": {"order_id": "2", "user_id": "42"}
		}`))
	})

	session, err := gw.GetCheckoutSession(context.Background(), "cs_test_2")
	require.NoError(t, err)

	assert.Equal(t, SessionStatusComplete, session.Status)
	assert.Equal(t, PaymentStatusPaid, session.PaymentStatus)
	assert.Equal(t, "pi_123", session.PaymentIntentID)
	assert.Equal(t, "42", session.Metadata[MetadataUserID])
}

func TestStripeGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "server error is retryable", status: http.StatusInternalServerError, want: ErrGatewayUnavailable},
		{name: "rate limit is retryable", status: http.StatusTooManyRequests, want: ErrGatewayUnavailable},
		{name: "bad request is rejected", status: http.StatusBadRequest, want: ErrGatewayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"type": "api_error", "message": "boom"}}`))
			})

			_, err := gw.GetCheckoutSession(context.Background(), "cs_missing")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStripeGateway_Misconfigured(t *testing.T) {
	gw := NewStripeGateway(&config.Stripe{}, zaptest.NewLogger(t))

	_, err := gw.CreateCheckoutSession(context.Background(), &CreateSessionRequest{})
	assert.ErrorIs(t, err, ErrGatewayMisconfigured)

	_, err = gw.GetCheckoutSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, ErrGatewayMisconfigured)

	_, err = gw.ParseWebhookEvent([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrGatewayMisconfigured)
}

func TestStripeGateway_ParseWebhookEvent(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("webhook parsing must not call the API")
	})

	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"api_version": "2024-06-20",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"status": "complete",
			"payment_status": "paid",
			"amount_total": 60000,
			"payment_intent": "pi_1",
			"metadata": {"order_id": "1", "user_id": "42"}
		}}
	}`)

	event, err := gw.ParseWebhookEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "cs_test_1", event.Session.ID)
	assert.Equal(t, "pi_1", event.Session.PaymentIntentID)
	require.NotNil(t, event.Session.AmountTotal)
	assert.Equal(t, int64(60000), *event.Session.AmountTotal)
	assert.Equal(t, "1", event.Session.Metadata[MetadataOrderID])
}

func TestStripeGateway_ParseWebhookEvent_NullAmount(t *testing.T) {
	gw := newTestGateway(t, nil)

	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_test_2", "object": "checkout.session", "status": "expired", "amount_total": null}}
	}`)

	event, err := gw.ParseWebhookEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	require.NotNil(t, event.Session)
	assert.Nil(t, event.Session.AmountTotal)
}

func TestStripeGateway_ParseWebhookEvent_OtherType(t *testing.T) {
	gw := newTestGateway(t, nil)

	payload := []byte(`{"id": "evt_3", "object": "event", "type": "charge.refunded", "data": {"object": {"id": "ch_1", "object": "charge"}}}`)

	event, err := gw.ParseWebhookEvent(payload, signPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", event.Type)
	assert.Nil(t, event.Session)
}

func TestStripeGateway_ParseWebhookEvent_BadSignature(t *testing.T) {
	gw := newTestGateway(t, nil)
	payload := []byte(`{"id": "evt_4", "object": "event", "type": "checkout.session.completed"}`)

	_, err := gw.ParseWebhookEvent(payload, signPayload(t, payload, "whsec_wrong"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = gw.ParseWebhookEvent(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := []byte(`{"id": "evt_4", "object": "event", "type": "checkout.session.expired"}`)
	_, err = gw.ParseWebhookEvent(tampered, signPayload(t, payload, testWebhookSecret))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
