// Package provider fetches daily adjusted closes from market data APIs.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"truthline/internal/symbols"
	"truthline/pkg/model"
)

// DefaultHistoryDays is the number of trading days requested per ticker
const DefaultHistoryDays = 300

// PriceProvider defines the interface for daily price sources
type PriceProvider interface {
	// Name returns the provider name
	Name() string

	// GetDailyPrices returns adjusted closes ending at endDate (YYYY-MM-DD),
	// oldest first, at most days rows. Rows with non-positive prices are dropped.
	GetDailyPrices(ctx context.Context, ticker, endDate string, days int) ([]model.PriceRow, error)

	// IsAvailable checks if the provider is available (has valid API key)
	IsAvailable() bool
}

// RequestObserver records the outcome of upstream calls
type RequestObserver interface {
	ObserveRequest(upstream, outcome string, elapsed time.Duration)
}

// ErrNotConfigured is returned by providers without credentials
var ErrNotConfigured = errors.New("provider not configured")

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a retryable provider error
func IsRetryable(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Retryable
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []PriceProvider
	log       zerolog.Logger
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(log zerolog.Logger, providers ...PriceProvider) *FallbackProvider {
	// Filter to only available providers
	available := make([]PriceProvider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available, log: log}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyPrices tries each provider in order until one returns rows.
// An empty successful answer moves on to the next provider.
func (f *FallbackProvider) GetDailyPrices(ctx context.Context, ticker, endDate string, days int) ([]model.PriceRow, error) {
	if len(f.providers) == 0 {
		return nil, &ProviderError{Provider: f.Name(), Err: ErrNotConfigured, Retryable: false}
	}

	var lastErr error
	for _, p := range f.providers {
		rows, err := p.GetDailyPrices(ctx, ticker, endDate, days)
		if err == nil && len(rows) > 0 {
			return rows, nil
		}
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
		}
		f.log.Debug().Str("provider", p.Name()).Str("ticker", ticker).Err(err).Msg("falling back")
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []PriceProvider {
	return f.providers
}

// Progress is called after each ticker of a batch
type Progress func(done, total int, ticker string)

// FetchMultiple fetches tickers one after another. A retryable failure is
// retried once; a failing ticker is then logged and gets an empty series. The
// batch itself never fails. Keys are normalized tickers.
func FetchMultiple(ctx context.Context, p PriceProvider, tickers []string, endDate string, days int, log zerolog.Logger, progress Progress) map[string][]model.PriceRow {
	tickers = symbols.NormalizeList(tickers)
	out := make(map[string][]model.PriceRow, len(tickers))

	for i, ticker := range tickers {
		if ctx.Err() != nil {
			out[ticker] = []model.PriceRow{}
			continue
		}

		rows, err := p.GetDailyPrices(ctx, ticker, endDate, days)
		if err != nil && IsRetryable(err) && ctx.Err() == nil {
			log.Debug().Err(err).Str("ticker", ticker).Msg("retrying price fetch")
			rows, err = p.GetDailyPrices(ctx, ticker, endDate, days)
		}
		if err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("price fetch failed")
			rows = []model.PriceRow{}
		}
		out[ticker] = rows

		if progress != nil {
			progress(i+1, len(tickers), ticker)
		}
	}
	return out
}

func validEndDate(endDate string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	return t, nil
}
