package shared

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// TaxAmount computes amount * rate / 100 rounded half-up to two places.
func TaxAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}
