package pricing

import (
	"procura/internal/core/apperror"
	"procura/internal/core/types"
)

// ReceiptTotals are the header totals of a goods receipt note.
type ReceiptTotals struct {
	Subtotal     types.Money
	TaxAmount    types.Money
	ShippingCost types.Money
	TotalAmount  types.Money
}

// SummarizeReceipt totals priced receipt lines and adds shipping once,
// undiscounted and untaxed.
func SummarizeReceipt(lines []LineResult, shipping types.Money) (ReceiptTotals, error) {
	if shipping.IsNegative() {
		return ReceiptTotals{}, apperror.NewValidationList("Receipt failed validation", []apperror.Violation{{
			Field: "shipping_cost", Code: "gte", Message: "shipping_cost must not be negative",
		}})
	}

	agg := Aggregate(lines)
	rt := ReceiptTotals{
		Subtotal:     agg.Subtotal,
		TaxAmount:    agg.TaxAmount,
		ShippingCost: types.RoundMoney(shipping),
	}
	rt.TotalAmount = rt.Subtotal.Add(rt.TaxAmount).Add(rt.ShippingCost)

	if err := rt.Verify(); err != nil {
		return ReceiptTotals{}, err
	}
	return rt, nil
}

// Verify checks total = subtotal + tax + shipping and shipping >= 0.
func (rt ReceiptTotals) Verify() error {
	if rt.ShippingCost.IsNegative() {
		return apperror.NewConsistencyViolation("shipping_cost is negative")
	}
	if !rt.TotalAmount.Equal(rt.Subtotal.Add(rt.TaxAmount).Add(rt.ShippingCost)) {
		return apperror.NewConsistencyViolation("receipt total_amount does not equal subtotal + tax_amount + shipping_cost")
	}
	return nil
}
