package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
		{"1180", "1180.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(RoundMoney(MustMoney(tt.in))))
		})
	}
}

func TestPercent(t *testing.T) {
	got := Percent(MustMoney("1000"), MustMoney("18"))
	assert.True(t, got.Equal(MustMoney("180")), got.String())
}

func TestQuantity_JSON(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &q))
	assert.Equal(t, Quantity(125_000), q)

	require.NoError(t, json.Unmarshal([]byte(`"4"`), &q))
	assert.Equal(t, NewQuantity(4), q)

	out, err := json.Marshal(NewQuantity(6))
	require.NoError(t, err)
	assert.Equal(t, "6", string(out))
}

func TestQuantity_Decimal(t *testing.T) {
	q, err := NewQuantityFromDecimal(MustMoney("1.2345"))
	require.NoError(t, err)
	assert.Equal(t, Quantity(12_345), q)
	assert.Equal(t, "1.2345", q.String())
	assert.True(t, q.Decimal().Equal(MustMoney("1.2345")))

	q, err = NewQuantityFromDecimal(MustMoney("-3.50"))
	require.NoError(t, err)
	assert.Equal(t, Quantity(-35_000), q)
}

func TestQuantity_RejectsLossyValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"five decimal places", "1.23456", ErrQuantityPrecision},
		{"below smallest unit", "0.00005", ErrQuantityPrecision},
		{"overflows scaled int64", "1000000000000000", ErrQuantityRange},
		{"far above range", "2000000000000000", ErrQuantityRange},
		{"negative overflow", "-1000000000000000", ErrQuantityRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuantity(tt.in)
			assert.ErrorIs(t, err, tt.want)

			var q Quantity
			err = json.Unmarshal([]byte(tt.in), &q)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Quantity(0), q)

			err = json.Unmarshal([]byte(`"`+tt.in+`"`), &q)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestQuantity_Bounds(t *testing.T) {
	q, err := ParseQuantity("922337203685477.5807")
	require.NoError(t, err)
	assert.Equal(t, Quantity(math.MaxInt64), q)

	q, err = ParseQuantity("0.0001")
	require.NoError(t, err)
	assert.Equal(t, Quantity(1), q)

	q, err = ParseQuantity("7.120000")
	require.NoError(t, err)
	assert.Equal(t, Quantity(71_200), q)
}

func TestParseQuantity_Invalid(t *testing.T) {
	_, err := ParseQuantity("")
	assert.Error(t, err)

	_, err = ParseQuantity("abc")
	assert.Error(t, err)
}
