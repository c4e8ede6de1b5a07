package services

import (
	"bakeshop/internal/models"

	"github.com/shopspring/decimal"
)

// Pricing is pure: these functions read cart and selection state, never
// mutate it, and always return the same result for the same inputs.

// ConfiguredUnitPrice returns the per-unit price of the configurable
// product: base price plus the extras of every selected option.
func ConfiguredUnitPrice(basePrice decimal.Decimal, engine *SelectionEngine, groups []models.OptionGroup) decimal.Decimal {
	return basePrice.Add(engine.ExtrasTotal(groups))
}

// LineUnitPrice returns the per-unit price of a cart line. The configured
// line is priced from its snapshot plus current extras; every other line is
// simply its captured snapshot price.
func LineUnitPrice(line models.CartLine, configuredProductID string, engine *SelectionEngine, groups []models.OptionGroup) decimal.Decimal {
	if engine != nil && line.ProductID == configuredProductID {
		return ConfiguredUnitPrice(line.UnitPriceSnapshot, engine, groups)
	}
	return line.UnitPriceSnapshot
}

// CartTotal returns the grand total across all cart lines, with the
// configured line (if any) priced through the selection engine.
func CartTotal(lines []models.CartLine, configuredProductID string, engine *SelectionEngine, groups []models.OptionGroup) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		unit := LineUnitPrice(line, configuredProductID, engine, groups)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}
