// Package pricing computes line, purchase-order and goods-receipt money values.
// Every function is pure; callers recompute after each field change instead of
// patching totals in place.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"procura/internal/core/apperror"
	"procura/internal/core/types"
)

// DiscountType selects how Discount is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

// Valid reports whether t is a known discount type. Empty means amount.
func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountAmount, "":
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// LineInput is everything the calculator needs for one line.
type LineInput struct {
	Quantity      types.Quantity
	UnitPrice     types.Money
	TaxPercentage types.Money
	Discount      types.Money
	DiscountType  DiscountType
}

// LineResult holds the derived values of one line, rounded to 2 places.
// LineTotal is always NetSubtotal + TaxValue and DiscountValue is always
// Gross - NetSubtotal, so aggregated totals reconcile to the cent.
// DiscountValue is the discount actually applied: an amount discount larger
// than Gross is reported as Gross, not as the requested amount.
type LineResult struct {
	Gross         types.Money
	DiscountValue types.Money
	NetSubtotal   types.Money
	TaxValue      types.Money
	LineTotal     types.Money
}

// Validate checks the input and returns every problem found. field prefixes
// the violation field names (e.g. "items[2]").
func (in LineInput) Validate(field string) []apperror.Violation {
	var out []apperror.Violation
	add := func(name, code, msg string) {
		out = append(out, apperror.Violation{Field: join(field, name), Code: code, Message: msg})
	}

	if !in.Quantity.IsPositive() {
		add("quantity", "gt", "quantity must be greater than 0")
	}
	if in.UnitPrice.IsNegative() {
		add("unit_price", "gte", "unit_price must not be negative")
	}
	if in.TaxPercentage.IsNegative() {
		add("tax_percentage", "gte", "tax_percentage must not be negative")
	}
	if in.Discount.IsNegative() {
		add("discount", "gte", "discount must not be negative")
	}
	if !in.DiscountType.Valid() {
		add("discount_type", "oneof", "discount_type must be percentage or amount")
	} else if in.DiscountType == DiscountPercentage && in.Discount.GreaterThan(hundred) {
		add("discount", "lte", "percentage discount must not exceed 100")
	}
	return out
}

// CalculateLine prices one line.
//
//	gross    = quantity * unit_price
//	discount = percentage ? gross * discount / 100 : discount
//	net      = max(gross - discount, 0)
//	tax      = net * tax_percentage / 100
//	total    = net + tax
//
// Intermediate terms keep full precision; each reported value is rounded once.
func CalculateLine(in LineInput) LineResult {
	gross := in.Quantity.Decimal().Mul(in.UnitPrice)

	discount := in.Discount
	if in.DiscountType == DiscountPercentage {
		discount = types.Percent(gross, in.Discount)
	}

	net := types.MaxMoney(gross.Sub(discount), decimal.Zero)
	tax := types.Percent(net, in.TaxPercentage)

	res := LineResult{
		Gross:       types.RoundMoney(gross),
		NetSubtotal: types.RoundMoney(net),
		TaxValue:    types.RoundMoney(tax),
	}
	res.DiscountValue = res.Gross.Sub(res.NetSubtotal)
	res.LineTotal = res.NetSubtotal.Add(res.TaxValue)
	return res
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return fmt.Sprintf("%s.%s", prefix, name)
}
