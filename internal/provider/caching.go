package provider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"truthline/internal/cache"
	"truthline/internal/symbols"
	"truthline/pkg/model"
)

// DefaultPriceTTL is how long fetched price history stays fresh
const DefaultPriceTTL = 6 * time.Hour

// CachingProvider wraps a PriceProvider with a TTL cache keyed by
// ticker and end date. Failed fetches and empty series are not cached.
type CachingProvider struct {
	inner PriceProvider
	store cache.Store[[]model.PriceRow]
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachingProvider creates a caching wrapper
func NewCachingProvider(inner PriceProvider, store cache.Store[[]model.PriceRow], ttl time.Duration, log zerolog.Logger) *CachingProvider {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &CachingProvider{inner: inner, store: store, ttl: ttl, log: log}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }

// GetDailyPrices serves from the cache when possible
func (p *CachingProvider) GetDailyPrices(ctx context.Context, ticker, endDate string, days int) ([]model.PriceRow, error) {
	key := symbols.Normalize(ticker) + ":" + endDate

	if rows, err := p.store.Get(ctx, key); err == nil {
		return rows, nil
	}

	rows, err := p.inner.GetDailyPrices(ctx, ticker, endDate, days)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return rows, nil
	}
	if err := p.store.Set(ctx, key, rows, p.ttl); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("price cache write failed")
	}
	return rows, nil
}

// Clear drops every cached series
func (p *CachingProvider) Clear(ctx context.Context) error {
	return p.store.Clear(ctx)
}
