package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// VATRates are the French rates a product or line may carry, highest first.
var VATRates = []decimal.Decimal{
	decimal.NewFromInt(20),
	decimal.NewFromInt(10),
	decimal.RequireFromString("5.5"),
	decimal.RequireFromString("2.1"),
	decimal.Zero,
}

// DefaultVATRate applies when a line or product is saved without one.
var DefaultVATRate = decimal.NewFromInt(20)

// Round2 rounds to cents, halves away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsValidVATRate reports whether rate is one of VATRates.
func IsValidVATRate(rate decimal.Decimal) bool {
	for _, r := range VATRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// Parse reads a user supplied amount such as "120.50" or "120,50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// Tax returns round2(base * rate / 100).
func Tax(base, rate decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(rate).Div(hundred))
}

// Format renders an amount the way it is printed on a French document.
func Format(d decimal.Decimal) string {
	return Round2(d).StringFixed(2) + " €"
}
