package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"truthline/internal/ratelimit"
	"truthline/internal/symbols"
	"truthline/pkg/model"
)

const (
	twelveDataBaseURL = "https://api.twelvedata.com"
	// twelveDataSpacing is the minimum gap between two requests
	twelveDataSpacing = 150 * time.Millisecond
)

// TwelveDataProvider implements PriceProvider for the Twelve Data time_series API
type TwelveDataProvider struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	limiter  *ratelimit.Limiter
	observer RequestObserver
}

// TwelveDataOption customizes a TwelveDataProvider
type TwelveDataOption func(*TwelveDataProvider)

// WithTwelveDataBaseURL points the provider at another host
func WithTwelveDataBaseURL(u string) TwelveDataOption {
	return func(p *TwelveDataProvider) { p.baseURL = u }
}

// WithTwelveDataSpacing overrides the request spacing
func WithTwelveDataSpacing(d time.Duration) TwelveDataOption {
	return func(p *TwelveDataProvider) { p.limiter = ratelimit.NewSpacedLimiter("twelvedata", d) }
}

// WithTwelveDataObserver records upstream calls
func WithTwelveDataObserver(o RequestObserver) TwelveDataOption {
	return func(p *TwelveDataProvider) { p.observer = o }
}

// NewTwelveDataProvider creates a new Twelve Data provider
func NewTwelveDataProvider(apiKey string, opts ...TwelveDataOption) *TwelveDataProvider {
	p := &TwelveDataProvider{
		apiKey:  apiKey,
		baseURL: twelveDataBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: ratelimit.NewSpacedLimiter("twelvedata", twelveDataSpacing),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *TwelveDataProvider) Name() string {
	return "twelvedata"
}

// IsAvailable returns true if API key is set
func (p *TwelveDataProvider) IsAvailable() bool {
	return p.apiKey != ""
}

type twelveDataResponse struct {
	Meta *struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GetDailyPrices fetches daily closes. Twelve Data returns newest first; the
// rows are reversed to oldest first.
func (p *TwelveDataProvider) GetDailyPrices(ctx context.Context, ticker, endDate string, days int) ([]model.PriceRow, error) {
	if !p.IsAvailable() {
		return nil, &ProviderError{Provider: p.Name(), Err: ErrNotConfigured, Retryable: false}
	}
	if _, err := validEndDate(endDate); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: false}
	}
	if days <= 0 {
		days = DefaultHistoryDays
	}
	ticker = symbols.Normalize(ticker)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("interval", "1day")
	params.Set("outputsize", strconv.Itoa(days))
	params.Set("end_date", endDate)
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/time_series?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.observe("error", start)
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		p.observe("rate_limited", start)
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		p.observe("error", start)
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: resp.StatusCode >= 500}
	}

	p.limiter.ResetBackoff()

	var data twelveDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.observe("error", start)
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Status == "error" {
		p.observe("error", start)
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s: %s", ticker, data.Message), Retryable: false}
	}
	p.observe("ok", start)

	rows := make([]model.PriceRow, 0, len(data.Values))
	for i := len(data.Values) - 1; i >= 0; i-- {
		v := data.Values[i]
		price, err := strconv.ParseFloat(v.Close, 64)
		if err != nil || !(price > 0) {
			continue
		}
		rows = append(rows, model.PriceRow{Ticker: ticker, Date: v.Datetime, AdjClose: price})
	}
	return rows, nil
}

func (p *TwelveDataProvider) observe(outcome string, start time.Time) {
	if p.observer != nil {
		p.observer.ObserveRequest(p.Name(), outcome, time.Since(start))
	}
}
