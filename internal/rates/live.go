package rates

import (
	"context"       // Fetch cancellation and deadlines
	"encoding/json" // Price API response decoding
	"fmt"           // Error wrapping
	"net/http"      // Live price fetches
	"strings"       // Code normalization
	"time"          // Cache TTL and fetch timeout

	"github.com/redis/go-redis/v9"  // Redis-backed price cache
	"github.com/shopspring/decimal" // Exact rate arithmetic
	"github.com/sirupsen/logrus"    // Fetch-failure logging

	"fxwallet/internal/currency" // Supported-currency checks
	"fxwallet/internal/domain"   // UnsupportedPairError
	"fxwallet/internal/utils"    // Redis cache helpers
)

// Quote provenance values
const (
	SourceLive     = "live"     // Rate computed from fetched (possibly cached) prices
	SourceFallback = "fallback" // Rate answered from the static table
)

// Quote is a rate tagged with where it came from. A fallback quote is fully
// valid for completing a transfer; provenance exists for logging and
// responses, not for gating.
type Quote struct {
	Rate   decimal.Decimal `json:"rate"`   // 1 unit of From in units of To
	Source string          `json:"source"` // live or fallback
	Cached bool            `json:"cached"` // Whether the prices came from the cache
}

// Cache stores fetched price tables for a TTL. Redis in production, an
// in-memory map in tests.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RedisCache adapts a Redis client to the Cache interface
type RedisCache struct {
	Client *redis.Client
}

// Get retrieves a cached value
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	return utils.GetCache(ctx, c.Client, key, dest)
}

// Set stores a value with a TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return utils.SetCache(ctx, c.Client, key, value, ttl)
}

// priceCacheKey is where the fetched BTC price table lives in the cache
const priceCacheKey = "rates:btc:prices"

// fetchTimeout bounds a single live fetch so a slow price source can never
// stall a transfer; on expiry the static table answers immediately
const fetchTimeout = 5 * time.Second

// LiveProvider fetches BTC-quoted prices from an external price API, caches
// the table for a TTL, and derives every pair the same way StaticProvider
// does: rate(from, to) = price[to] / price[from]. Any fetch failure or
// missing price falls back to the static table.
type LiveProvider struct {
	apiURL   string          // Price API endpoint returning BTC prices
	client   *http.Client    // HTTP client with a bounded timeout
	cache    Cache           // TTL cache for the fetched price table
	ttl      time.Duration   // Cache lifetime, default 5 minutes
	fallback *StaticProvider // Answers when the live source cannot
}

// NewLiveProvider builds a live provider. A ttl of zero means 5 minutes.
func NewLiveProvider(apiURL string, cache Cache, ttl time.Duration, fallback *StaticProvider) *LiveProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LiveProvider{
		apiURL:   apiURL,
		client:   &http.Client{Timeout: fetchTimeout},
		cache:    cache,
		ttl:      ttl,
		fallback: fallback,
	}
}

// GetRate implements Provider
func (p *LiveProvider) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	q, err := p.GetQuote(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Rate, nil
}

// GetQuote returns the rate for a pair together with its provenance
func (p *LiveProvider) GetQuote(ctx context.Context, from, to string) (Quote, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if !currency.IsSupported(from) || !currency.IsSupported(to) {
		return Quote{}, &domain.UnsupportedPairError{From: from, To: to}
	}
	// Identity pairs are answered locally and are exactly 1
	if from == to {
		return Quote{Rate: decimal.New(1, 0), Source: SourceLive}, nil
	}
	prices, cached, err := p.prices(ctx)
	if err == nil {
		fromPrice, okFrom := prices[from]
		toPrice, okTo := prices[to]
		if okFrom && okTo && fromPrice.IsPositive() && toPrice.IsPositive() {
			return Quote{Rate: toPrice.Div(fromPrice), Source: SourceLive, Cached: cached}, nil
		}
		err = fmt.Errorf("live prices missing pair %s/%s", from, to)
	}
	// Fetch failures are handled here, not propagated: a price-source outage
	// must never block a transfer
	logrus.WithFields(logrus.Fields{
		"from":  from,
		"to":    to,
		"error": err.Error(),
	}).Warn("Live rate unavailable, using static table")
	rate, err := p.fallback.GetRate(ctx, from, to)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Rate: rate, Source: SourceFallback}, nil
}

// prices returns the BTC price table, from cache when fresh, fetching
// otherwise. The second return reports a cache hit.
func (p *LiveProvider) prices(ctx context.Context) (map[string]decimal.Decimal, bool, error) {
	var cached map[string]string
	if found, err := p.cache.Get(ctx, priceCacheKey, &cached); err == nil && found {
		parsed, err := parsePrices(cached)
		if err == nil {
			return parsed, true, nil
		}
		// Corrupt cache entry, fall through to a fresh fetch
	}
	fetched, err := p.fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	// Refresh races are safe: any table written within the TTL is valid
	_ = p.cache.Set(ctx, priceCacheKey, fetched, p.ttl)
	parsed, err := parsePrices(fetched)
	if err != nil {
		return nil, false, err
	}
	return parsed, false, nil
}

// priceResponse mirrors the price API payload: BTC quoted in each currency
type priceResponse struct {
	Bitcoin map[string]float64 `json:"bitcoin"`
}

// fetch performs one bounded HTTP fetch of the BTC price table
func (p *LiveProvider) fetch(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}
	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	prices := map[string]string{"BTC": "1"} // One BTC is one BTC
	for code, price := range body.Bitcoin {
		if price <= 0 {
			continue
		}
		prices[strings.ToUpper(code)] = decimal.NewFromFloat(price).String()
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("price API returned no usable prices")
	}
	return prices, nil
}

// parsePrices converts the cached string table into decimals
func parsePrices(raw map[string]string) (map[string]decimal.Decimal, error) {
	parsed := make(map[string]decimal.Decimal, len(raw))
	for code, price := range raw {
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		parsed[code] = d
	}
	return parsed, nil
}
