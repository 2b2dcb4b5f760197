package order

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
)

// PricingRules are the tax and shipping rules applied at checkout
type PricingRules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// RulesFromConfig reads pricing rules from the commerce section
func RulesFromConfig(cfg *config.Config) PricingRules {
	return PricingRules{
		TaxRate:               cfg.Commerce.TaxRate,
		FreeShippingThreshold: cfg.Commerce.FreeShippingThreshold,
		FlatShippingFee:       cfg.Commerce.FlatShippingFee,
	}
}

// Totals are the monetary amounts of an order
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// CalculateTotals prices items. Tax is rounded to two places and
// shipping is free once the subtotal reaches the threshold.
func CalculateTotals(items []OrderItem, rules PricingRules) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	tax := subtotal.Mul(rules.TaxRate).Round(2)

	shipping := rules.FlatShippingFee
	if subtotal.GreaterThanOrEqual(rules.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
