package currency

import "strings" // Case-insensitive code normalization

// Currency describes one supported currency
type Currency struct {
	Code            string // ISO-style code, e.g. "USD" or "BTC"
	Name            string // Human-readable name
	Precision       int32  // Decimal digits of the smallest unit (cents=2, satoshi=8, wei=18)
	DisplayDecimals int32  // Digits shown to the user (ETH is shown with 8, stored with 18)
	Symbol          string // Display symbol
	SymbolAfter     bool   // Fiat prints the symbol before the amount, crypto after
}

// Supported currencies, in display order. The set is closed: balances are
// created for exactly these codes and no others.
var supported = []Currency{
	{Code: "USD", Name: "US Dollar", Precision: 2, DisplayDecimals: 2, Symbol: "$"},
	{Code: "EUR", Name: "Euro", Precision: 2, DisplayDecimals: 2, Symbol: "€"},
	{Code: "GBP", Name: "British Pound", Precision: 2, DisplayDecimals: 2, Symbol: "£"},
	{Code: "BTC", Name: "Bitcoin", Precision: 8, DisplayDecimals: 8, Symbol: "BTC", SymbolAfter: true},
	{Code: "ETH", Name: "Ethereum", Precision: 18, DisplayDecimals: 8, Symbol: "ETH", SymbolAfter: true},
}

// byCode indexes the supported currencies for lookup
var byCode = func() map[string]Currency {
	m := make(map[string]Currency, len(supported))
	for _, c := range supported {
		m[c.Code] = c
	}
	return m
}()

// Get returns the currency for a code (case-insensitive) and whether it is supported
func Get(code string) (Currency, bool) {
	c, ok := byCode[strings.ToUpper(code)]
	return c, ok
}

// IsSupported reports whether code names a supported currency
func IsSupported(code string) bool {
	_, ok := Get(code)
	return ok
}

// Codes returns the supported currency codes in display order
func Codes() []string {
	codes := make([]string, len(supported))
	for i, c := range supported {
		codes[i] = c.Code
	}
	return codes
}

// All returns the supported currencies in display order
func All() []Currency {
	out := make([]Currency, len(supported))
	copy(out, supported)
	return out
}
