package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/core/apperror"
	"procura/internal/core/types"
)

func money(s string) types.Money { return types.MustMoney(s) }

func assertMoney(t *testing.T, want string, got types.Money, field string) {
	t.Helper()
	assert.Equal(t, want, types.FormatMoney(got), field)
}

func TestCalculateLine_TaxWithoutDiscount(t *testing.T) {
	res := CalculateLine(LineInput{
		Quantity:      types.NewQuantity(10),
		UnitPrice:     money("100"),
		TaxPercentage: money("18"),
		Discount:      money("0"),
		DiscountType:  DiscountAmount,
	})

	assertMoney(t, "1000.00", res.NetSubtotal, "net_subtotal")
	assertMoney(t, "180.00", res.TaxValue, "tax_value")
	assertMoney(t, "1180.00", res.LineTotal, "line_total")
	assertMoney(t, "0.00", res.DiscountValue, "discount_value")

	totals := Aggregate([]LineResult{res})
	assertMoney(t, "1180.00", totals.TotalAmount, "total_amount")
}

func TestCalculateLine(t *testing.T) {
	tests := []struct {
		name                      string
		in                        LineInput
		net, discount, tax, total string
	}{
		{
			name: "percentage discount",
			in: LineInput{
				Quantity: types.NewQuantity(4), UnitPrice: money("25"),
				TaxPercentage: money("10"), Discount: money("10"), DiscountType: DiscountPercentage,
			},
			net: "90.00", discount: "10.00", tax: "9.00", total: "99.00",
		},
		{
			name: "amount discount",
			in: LineInput{
				Quantity: types.NewQuantity(2), UnitPrice: money("50"),
				TaxPercentage: money("5"), Discount: money("20"), DiscountType: DiscountAmount,
			},
			net: "80.00", discount: "20.00", tax: "4.00", total: "84.00",
		},
		{
			name: "amount discount larger than gross clamps to zero",
			in: LineInput{
				Quantity: types.NewQuantity(1), UnitPrice: money("30"),
				TaxPercentage: money("18"), Discount: money("45"), DiscountType: DiscountAmount,
			},
			net: "0.00", discount: "30.00", tax: "0.00", total: "0.00",
		},
		{
			name: "rounding half away from zero on tax",
			in: LineInput{
				Quantity: types.NewQuantity(1), UnitPrice: money("0.25"),
				TaxPercentage: money("10"), DiscountType: DiscountAmount,
			},
			net: "0.25", discount: "0.00", tax: "0.03", total: "0.28",
		},
		{
			name: "fractional quantity",
			in: LineInput{
				Quantity: types.MustQuantity("2.5"), UnitPrice: money("3.33"),
				TaxPercentage: money("0"), DiscountType: DiscountAmount,
			},
			net: "8.33", discount: "0.00", tax: "0.00", total: "8.33",
		},
		{
			name: "tax computed from unrounded net",
			in: LineInput{
				Quantity: types.NewQuantity(3), UnitPrice: money("0.335"),
				TaxPercentage: money("50"), DiscountType: DiscountAmount,
			},
			// net 1.005 -> 1.01, tax 0.5025 -> 0.50
			net: "1.01", discount: "0.00", tax: "0.50", total: "1.51",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CalculateLine(tt.in)
			assertMoney(t, tt.net, res.NetSubtotal, "net_subtotal")
			assertMoney(t, tt.discount, res.DiscountValue, "discount_value")
			assertMoney(t, tt.tax, res.TaxValue, "tax_value")
			assertMoney(t, tt.total, res.LineTotal, "line_total")
		})
	}
}

func TestCalculateLine_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		in := randomLine(rng)
		first := CalculateLine(in)
		second := CalculateLine(in)
		require.True(t, first.LineTotal.Equal(second.LineTotal))
		require.Equal(t, first, second)
	}
}

func TestLineInput_Validate_CollectsAll(t *testing.T) {
	violations := LineInput{
		Quantity:      0,
		UnitPrice:     money("-1"),
		TaxPercentage: money("-5"),
		Discount:      money("150"),
		DiscountType:  DiscountPercentage,
	}.Validate("items[0]")

	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{
		"items[0].quantity",
		"items[0].unit_price",
		"items[0].tax_percentage",
		"items[0].discount",
	}, fields)
}

func TestLineInput_Validate_UnknownDiscountType(t *testing.T) {
	violations := LineInput{
		Quantity: types.NewQuantity(1), UnitPrice: money("1"), DiscountType: "bogus",
	}.Validate("")

	require.Len(t, violations, 1)
	assert.Equal(t, apperror.Violation{Field: "discount_type", Code: "oneof", Message: "discount_type must be percentage or amount"}, violations[0])
}

func randomLine(rng *rand.Rand) LineInput {
	dt := DiscountAmount
	disc := decimal.New(rng.Int63n(5000), -2)
	if rng.Intn(2) == 0 {
		dt = DiscountPercentage
		disc = decimal.New(rng.Int63n(10000), -2)
	}
	return LineInput{
		Quantity:      types.Quantity(rng.Int63n(1_000_000) + 1),
		UnitPrice:     decimal.New(rng.Int63n(1_000_000), -3),
		TaxPercentage: decimal.New(rng.Int63n(3000), -2),
		Discount:      disc,
		DiscountType:  dt,
	}
}
