package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. An order starts as pending and moves through the worker
// pipeline until it is completed or cancelled.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// Customization is one chosen option carried on an order item, with the
// price delta it contributed at submission time.
type Customization struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderItem represents a single item within an order. Price is the per-unit
// price at the time of submission; for a configured product it already
// includes the extras from Customizations.
type OrderItem struct {
	ProductID      string          `json:"id"`
	Quantity       int             `json:"count"`
	Price          decimal.Decimal `json:"price"`
	Customizations []Customization `json:"customizations,omitempty"`
}

// Order represents a submitted customer order. Items are stored as a JSON
// column: order lines are immutable after submission, so relational
// normalization buys nothing.
type Order struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BuyerID     string          `json:"buyerId" gorm:"index;type:varchar(36)"`
	Items       []OrderItem     `json:"items" gorm:"serializer:json"`
	TotalAmount decimal.Decimal `json:"totalAmount" gorm:"type:decimal(10,2)"`
	Status      string          `json:"status" gorm:"type:varchar(20)"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OrderPayload is the normalized submission body sent to the order
// collaborator. It is built once per attempt and not mutated afterwards.
type OrderPayload struct {
	BuyerRef string      `json:"buyerRef" validate:"required"`
	Items    []OrderItem `json:"items" validate:"required,min=1,dive"`
}
