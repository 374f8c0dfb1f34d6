package currency

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	usd, _ := Get("USD")
	btc, _ := Get("BTC")

	got := ToBaseUnits(decimal.RequireFromString("1500.00"), usd)
	assert.Equal(t, "150000", got.String())

	got = ToBaseUnits(decimal.RequireFromString("0.5"), btc)
	assert.Equal(t, "50000000", got.String())

	// Half-up rounding on the scaled value
	got = ToBaseUnits(decimal.RequireFromString("10.005"), usd)
	assert.Equal(t, "1001", got.String())

	got = ToBaseUnits(decimal.RequireFromString("10.004"), usd)
	assert.Equal(t, "1000", got.String())
}

func TestToBaseUnitsWeiExactness(t *testing.T) {
	eth, _ := Get("ETH")

	// 10 ETH in wei is 10^19, past int64 range; the arithmetic must stay exact
	got := ToBaseUnits(decimal.RequireFromString("10"), eth)
	assert.Equal(t, "10000000000000000000", got.String())

	got = ToBaseUnits(decimal.RequireFromString("1.000000000000000001"), eth)
	assert.Equal(t, "1000000000000000001", got.String())
}

func TestFromBaseUnits(t *testing.T) {
	usd, _ := Get("USD")
	eth, _ := Get("ETH")

	dec := FromBaseUnits(NewBaseUnits(150000), usd)
	assert.True(t, dec.Equal(decimal.RequireFromString("1500.00")))

	// Full wei precision survives the conversion back
	wei, err := ParseBaseUnits("1000000000000000001")
	require.NoError(t, err)
	dec = FromBaseUnits(wei, eth)
	assert.Equal(t, "1.000000000000000001", dec.String())
}

func TestRoundTrip(t *testing.T) {
	// fromBaseUnits(toBaseUnits(x, c), c) == x within display precision
	amounts := []string{"0.01", "1", "19.99", "1234.56", "0.12345678", "42"}
	for _, c := range All() {
		for _, a := range amounts {
			x := decimal.RequireFromString(a)
			back := FromBaseUnits(ToBaseUnits(x, c), c)
			assert.Equal(t, x.StringFixed(c.DisplayDecimals), back.StringFixed(c.DisplayDecimals),
				"round trip of %s %s", a, c.Code)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	usd, _ := Get("USD")
	btc, _ := Get("BTC")
	eth, _ := Get("ETH")

	assert.Equal(t, "$1500.00", FormatAmount(decimal.RequireFromString("1500"), usd, true))
	assert.Equal(t, "1500.00", FormatAmount(decimal.RequireFromString("1500"), usd, false))
	assert.Equal(t, "0.12345678 BTC", FormatAmount(decimal.RequireFromString("0.12345678"), btc, true))

	// ETH displays 8 decimals and rounds (toFixed semantics), storage keeps 18
	assert.Equal(t, "1.00000000 ETH", FormatAmount(decimal.RequireFromString("1.000000001"), eth, true))
	assert.Equal(t, "0.12345679 ETH", FormatAmount(decimal.RequireFromString("0.123456785"), eth, true))
}

func TestIsValidAmount(t *testing.T) {
	assert.True(t, IsValidAmount(0.01))
	assert.True(t, IsValidAmount(1e6))
	assert.False(t, IsValidAmount(0))
	assert.False(t, IsValidAmount(-5))
	assert.False(t, IsValidAmount(math.NaN()))
	assert.False(t, IsValidAmount(math.Inf(1)))
	assert.False(t, IsValidAmount(math.Inf(-1)))
}

func TestGet(t *testing.T) {
	c, ok := Get("usd")
	require.True(t, ok, "codes are case-insensitive")
	assert.Equal(t, "USD", c.Code)

	_, ok = Get("XYZ")
	assert.False(t, ok)

	assert.Equal(t, []string{"USD", "EUR", "GBP", "BTC", "ETH"}, Codes())
}
