package pricing

import (
	"fmt"

	"procura/internal/core/apperror"
	"procura/internal/core/types"
)

// Totals are document-level money values.
type Totals struct {
	Subtotal       types.Money
	TaxAmount      types.Money
	DiscountAmount types.Money
	TotalAmount    types.Money
}

// Aggregate sums priced lines into document totals.
func Aggregate(lines []LineResult) Totals {
	t := Totals{
		Subtotal:       types.Zero(),
		TaxAmount:      types.Zero(),
		DiscountAmount: types.Zero(),
	}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.NetSubtotal)
		t.TaxAmount = t.TaxAmount.Add(l.TaxValue)
		t.DiscountAmount = t.DiscountAmount.Add(l.Gross.Sub(l.NetSubtotal))
	}
	t.TotalAmount = t.Subtotal.Add(t.TaxAmount)
	return t
}

// Outstanding returns total - paid. A negative result is an invariant breach.
func Outstanding(total, paid types.Money) (types.Money, error) {
	out := total.Sub(paid)
	if out.IsNegative() {
		return types.Zero(), apperror.NewNegativeOutstanding(types.FormatMoney(total), types.FormatMoney(paid))
	}
	return out, nil
}

// VerifyTotals checks that the stored line totals reconcile with the header.
func VerifyTotals(lineTotals []types.Money, t Totals) error {
	sum := types.Zero()
	for _, lt := range lineTotals {
		sum = sum.Add(lt)
	}
	if !sum.Equal(t.Subtotal.Add(t.TaxAmount)) {
		return apperror.NewConsistencyViolation(fmt.Sprintf(
			"line totals %s do not match subtotal+tax %s",
			types.FormatMoney(sum), types.FormatMoney(t.Subtotal.Add(t.TaxAmount)),
		))
	}
	if !t.TotalAmount.Equal(t.Subtotal.Add(t.TaxAmount)) {
		return apperror.NewConsistencyViolation("total_amount does not equal subtotal + tax_amount")
	}
	return nil
}
