package currency

import (
	"math" // Finite-float checks on untrusted input

	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// IsValidAmount reports whether x is usable as a money amount: finite and
// strictly positive. Request payloads arrive as float64, so NaN and the
// infinities must be rejected before any decimal conversion.
func IsValidAmount(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}

// ToBaseUnits converts a decimal amount into the currency's smallest unit,
// rounding half-up on the scaled value. The result is an exact integer; this
// is the single quantization point per transaction leg.
func ToBaseUnits(amount decimal.Decimal, c Currency) BaseUnits {
	scaled := amount.Shift(c.Precision).Round(0) // Round half away from zero = half-up for positive amounts
	return BaseUnitsFromBig(scaled.BigInt())
}

// FromBaseUnits converts base units back to a decimal amount at full storage
// precision. The result is for display and response payloads only.
func FromBaseUnits(b BaseUnits, c Currency) decimal.Decimal {
	return decimal.NewFromBigInt(b.BigInt(), -c.Precision)
}

// FormatAmount renders a decimal amount with the currency's display decimals
// (rounding, not flooring) and, optionally, its symbol. Fiat symbols go
// before the amount, crypto symbols after: "$1500.00", "0.12345678 BTC".
func FormatAmount(amount decimal.Decimal, c Currency, includeSymbol bool) string {
	fixed := amount.StringFixed(c.DisplayDecimals) // toFixed semantics: rounds to display precision
	if !includeSymbol {
		return fixed
	}
	if c.SymbolAfter {
		return fixed + " " + c.Symbol
	}
	return c.Symbol + fixed
}
