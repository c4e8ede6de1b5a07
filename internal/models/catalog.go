package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OptionGroup is a named set of related choices for the configurable
// product (e.g. "Filling"). MinSelection of 0 means the group is optional;
// MaxSelection of 1 means exclusive choice, greater means bounded
// multi-choice.
type OptionGroup struct {
	ID           string   `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	CategoryID   string   `json:"categoryId" gorm:"index;type:varchar(36)"`
	Name         string   `json:"name" validate:"required,min=2,max=100"`
	MinSelection int      `json:"minSelection" validate:"gte=0"`
	MaxSelection int      `json:"maxSelection" validate:"gte=1"`
	Options      []Option `json:"options" gorm:"foreignKey:GroupID"`
	gorm.Model
}

// Option is one selectable choice inside an OptionGroup. Unavailable
// options stay renderable but must never enter a selection.
type Option struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	GroupID     string          `json:"groupId" gorm:"index;type:varchar(36)"`
	Name        string          `json:"name" validate:"required,min=1,max=100"`
	PriceExtra  decimal.Decimal `json:"priceExtra" gorm:"type:decimal(10,2)"`
	IsAvailable bool            `json:"isAvailable"`
	gorm.Model
}
