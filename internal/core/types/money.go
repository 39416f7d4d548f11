// Package types provides the money and quantity primitives shared by every calculation.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept for derived monetary values.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// Percent returns m * pct / 100 without rounding.
func Percent(m Money, pct decimal.Decimal) Money {
	return m.Mul(pct).Div(hundred)
}

// FormatMoney renders m with exactly two fractional digits.
func FormatMoney(m Money) string {
	return m.StringFixed(MoneyScale)
}

// MaxMoney returns the larger of a and b.
func MaxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
