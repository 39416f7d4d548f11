package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/core/types"
)

func TestSummarizeReceipt_PartialReceipt(t *testing.T) {
	line := CalculateLine(LineInput{Quantity: types.NewQuantity(6), UnitPrice: money("100"), TaxPercentage: money("18")})

	rt, err := SummarizeReceipt([]LineResult{line}, money("0"))
	require.NoError(t, err)
	assertMoney(t, "708.00", rt.TotalAmount, "total_amount")

	withShipping, err := SummarizeReceipt([]LineResult{line}, money("25.50"))
	require.NoError(t, err)
	assertMoney(t, "600.00", withShipping.Subtotal, "subtotal")
	assertMoney(t, "108.00", withShipping.TaxAmount, "tax_amount")
	assertMoney(t, "733.50", withShipping.TotalAmount, "total_amount")
}

func TestSummarizeReceipt_NegativeShipping(t *testing.T) {
	_, err := SummarizeReceipt(nil, money("-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestReceiptTotals_Verify(t *testing.T) {
	rt := ReceiptTotals{Subtotal: money("10"), TaxAmount: money("1"), ShippingCost: money("2"), TotalAmount: money("13")}
	assert.NoError(t, rt.Verify())

	rt.TotalAmount = money("11")
	assert.Error(t, rt.Verify())
}
