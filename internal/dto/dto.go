package dto

import "time"

type CheckoutRequest struct {
	ItemType string `json:"itemType" validate:"omitempty,max=32"`
	ItemID   uint   `json:"itemId"`
	BuildID  uint   `json:"buildId"` // legacy payload: implies itemType=build
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	Reused      bool   `json:"reused,omitempty"`
}

type WebhookAck struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
	Ignored   bool `json:"ignored,omitempty"`
}

type OrderResponse struct {
	ID          uint      `json:"id"`
	ItemType    string    `json:"itemType"`
	ItemID      uint      `json:"itemId"`
	ItemName    string    `json:"itemName"`
	BuildName   string    `json:"buildName"`
	AmountCents int64     `json:"amountCents"`
	AmountEur   string    `json:"amountEur"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UserEmail   string    `json:"userEmail,omitempty"`
}

type SessionStatusResponse struct {
	Order *OrderResponse `json:"order"`
}

type OrderListResponse struct {
	Orders []*OrderResponse `json:"orders"`
}

type RegisterRequest struct {
	Email          string `json:"email" validate:"required,email,max=255"`
	Password       string `json:"password" validate:"required,max=72"`
	AdminSetupCode string `json:"adminSetupCode"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User      *UserResponse `json:"user"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

type CatalogItemResponse struct {
	Type     string `json:"type"`
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	PriceEur string `json:"priceEur"`
	Brand    string `json:"brand,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

type CatalogListResponse struct {
	Items []*CatalogItemResponse `json:"items"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
