package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Email        string   `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:16;not null;default:USER"`
	CreatedAt    time.Time
}

type AuthSession struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"index;not null"`
	TokenID       string    `gorm:"size:64;uniqueIndex;not null"` // jwt jti
	ExpiresAt     time.Time `gorm:"not null"`
	IPAddress     string    `gorm:"size:64"`
	UserAgent     string    `gorm:"size:512"`
	InvalidatedAt *time.Time
	CreatedAt     time.Time
}

// Build is a curated, preconfigured system recommendation.
type Build struct {
	ID                uint            `gorm:"primaryKey"`
	ProfileKey        string          `gorm:"size:64;index;not null"`
	Name              string          `gorm:"size:255;not null"`
	TargetModel       string          `gorm:"size:128"`
	CPUName           string          `gorm:"size:128"`
	GPUName           string          `gorm:"size:128"`
	RAMGB             int             `gorm:"not null"`
	StorageGB         int             `gorm:"not null"`
	EstimatedPriceEur decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	BestFor           string          `gorm:"size:512"`
}

// Component is a single catalog part. Kind is one of the component ItemTypes.
type Component struct {
	ID       uint            `gorm:"primaryKey"`
	Kind     ItemType        `gorm:"size:32;index;not null"`
	Name     string          `gorm:"size:255;not null"`
	Brand    string          `gorm:"size:64"`
	Specs    string          `gorm:"size:512"`
	PriceEur decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

type Order struct {
	ID                uint        `gorm:"primaryKey"`
	UserID            uint        `gorm:"index;not null"`
	ItemType          ItemType    `gorm:"size:32;index:idx_orders_item;not null"`
	ItemID            uint        `gorm:"index:idx_orders_item;not null"`
	ItemName          string      `gorm:"size:255;not null"` // snapshot at creation
	AmountCents       int64       `gorm:"not null"`
	Currency          string      `gorm:"size:8;not null"`
	Status            OrderStatus `gorm:"size:32;index;not null"`
	CheckoutSessionID *string     `gorm:"size:255;uniqueIndex"`
	PaymentIntentID   *string     `gorm:"size:255"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// WebhookEvent is the dedup ledger for gateway deliveries.
type WebhookEvent struct {
	EventID    string `gorm:"primaryKey;size:255;not null"`
	EventType  string `gorm:"size:128;index;not null"`
	ReceivedAt time.Time
}

// AdminOrder is an order row joined with its owner's email.
type AdminOrder struct {
	Order
	UserEmail string
}
