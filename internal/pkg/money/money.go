// Package money keeps all price arithmetic in exact decimals. Conversion to
// integer minor units (paise) happens exactly once, at the gateway boundary,
// with round-half-up — gateway amounts are always int64 minor units so no
// float ever touches a monetary value.
package money

import (
	"github.com/shopspring/decimal"

	"greenh2-backend/internal/pkg/apperr"
)

var hundred = decimal.NewFromInt(100)

// Total computes price × quantity exactly.
func Total(pricePerUnit decimal.Decimal, quantity int) decimal.Decimal {
	return pricePerUnit.Mul(decimal.NewFromInt(int64(quantity)))
}

// ToMinorUnits converts a decimal amount to integer minor units, rounding
// half up. Rounding here is a contract: 10.005 becomes 1001 paise, never 1000.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ParsePrice parses and validates a price string from a request body.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.New(apperr.Validation, "Invalid price")
	}
	if d.Sign() <= 0 {
		return decimal.Zero, apperr.New(apperr.Validation, "Price must be a positive number")
	}
	return d, nil
}
