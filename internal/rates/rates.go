package rates

import (
	"context" // Bounded live fetches
	"strings" // Code normalization

	"github.com/shopspring/decimal" // Exact rate arithmetic

	"fxwallet/internal/currency" // Supported-currency checks
	"fxwallet/internal/domain"   // UnsupportedPairError
)

// Provider supplies a conversion rate between two currency codes: one unit
// of from equals GetRate(from, to) units of to. Implementations must return
// exactly 1 for same-currency pairs and a positive rate otherwise.
type Provider interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Inverse returns 1/rate, for display purposes only — conversions always
// multiply by the forward rate.
func Inverse(rate decimal.Decimal) decimal.Decimal {
	return decimal.New(1, 0).Div(rate)
}

// StaticProvider derives any supported pair from a fixed BTC-anchored price
// table: each entry is the price of one BTC in that currency, and
// rate(from, to) = price[to] / price[from]. Cross rates therefore go through
// BTC, matching how the live source quotes them.
type StaticProvider struct {
	btcPrices map[string]decimal.Decimal // Currency code -> units per BTC
}

// DefaultBTCPrices is the built-in fallback table. Values are reference
// prices, not market data; they only matter when the live source is down.
var DefaultBTCPrices = map[string]string{
	"BTC": "1",
	"USD": "65000",
	"EUR": "59150",
	"GBP": "50700",
	"ETH": "24.8",
}

// NewStaticProvider builds a provider from a BTC-anchored price table given
// as decimal strings. Nil uses DefaultBTCPrices.
func NewStaticProvider(btcPrices map[string]string) (*StaticProvider, error) {
	if btcPrices == nil {
		btcPrices = DefaultBTCPrices
	}
	parsed := make(map[string]decimal.Decimal, len(btcPrices))
	for code, price := range btcPrices {
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		parsed[strings.ToUpper(code)] = d
	}
	return &StaticProvider{btcPrices: parsed}, nil
}

// GetRate returns the static cross rate for the pair
func (p *StaticProvider) GetRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		if _, ok := currency.Get(from); !ok {
			return decimal.Zero, &domain.UnsupportedPairError{From: from, To: to}
		}
		return decimal.New(1, 0), nil // Identity pairs are exactly 1, never computed
	}
	fromPrice, okFrom := p.btcPrices[from]
	toPrice, okTo := p.btcPrices[to]
	if !okFrom || !okTo || !fromPrice.IsPositive() || !toPrice.IsPositive() {
		return decimal.Zero, &domain.UnsupportedPairError{From: from, To: to}
	}
	return toPrice.Div(fromPrice), nil
}
