package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents an item sold by the shop.
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name          string          `json:"name" validate:"required,min=3,max=100"`
	Description   string          `json:"description" validate:"omitempty,max=500"`
	UnitPrice     decimal.Decimal `json:"unitPrice" gorm:"type:decimal(10,2)"`
	CategoryLabel string          `json:"categoryLabel" validate:"omitempty,max=100"`
	// Customizable marks the product whose final shape and price come from
	// the configurator (option groups) rather than the list price alone.
	Customizable bool `json:"customizable"`
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
