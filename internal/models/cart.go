package models

import "github.com/shopspring/decimal"

// CartLine is one row in a buyer's cart: a single product and its quantity.
// UnitPriceSnapshot is captured when the line is created and never changes
// afterwards, so a later catalog price update does not reprice a cart.
type CartLine struct {
	ProductID         string          `json:"id"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	UnitPriceSnapshot decimal.Decimal `json:"unitPriceSnapshot"`
	CategoryLabel     string          `json:"categoryLabel"`
}

// LineTotal returns UnitPriceSnapshot multiplied by the line quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
