package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/guregu/null/v6"

	"truthline/internal/ratelimit"
	"truthline/internal/symbols"
	"truthline/pkg/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider implements PriceProvider for Yahoo Finance (unofficial API)
type YahooProvider struct {
	baseURL  string
	client   *http.Client
	limiter  *ratelimit.Limiter
	observer RequestObserver
	loc      *time.Location
}

// YahooOption customizes a YahooProvider
type YahooOption func(*YahooProvider)

// WithYahooBaseURL points the provider at another host
func WithYahooBaseURL(u string) YahooOption {
	return func(p *YahooProvider) { p.baseURL = u }
}

// WithYahooObserver records upstream calls
func WithYahooObserver(o RequestObserver) YahooOption {
	return func(p *YahooProvider) { p.observer = o }
}

// NewYahooProvider creates a new Yahoo Finance provider
func NewYahooProvider(opts ...YahooOption) *YahooProvider {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	p := &YahooProvider{
		baseURL: yahooBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: ratelimit.NewLimiter("yahoo", 30), // Conservative rate limit
		loc:     loc,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed)
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// yahooResponse represents the Yahoo Finance chart response. Missing
// sessions come back as JSON nulls.
type yahooResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []null.Float `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []null.Float `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyPrices fetches daily adjusted closes up to and including endDate
func (p *YahooProvider) GetDailyPrices(ctx context.Context, ticker, endDate string, days int) ([]model.PriceRow, error) {
	end, err := validEndDate(endDate)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: false}
	}
	if days <= 0 {
		days = DefaultHistoryDays
	}
	ticker = symbols.Normalize(ticker)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Calendar buffer for weekends and holidays
	startTime := end.AddDate(0, 0, -(days*7/5 + 10))
	endTime := end.AddDate(0, 0, 1)

	params := url.Values{}
	params.Set("period1", fmt.Sprint(startTime.Unix()))
	params.Set("period2", fmt.Sprint(endTime.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div,splits")

	reqURL := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(ticker), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

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
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	var data yahooResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.observe("error", start)
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Chart.Error != nil {
		p.observe("error", start)
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}
	p.observe("ok", start)

	if len(data.Chart.Result) == 0 {
		return []model.PriceRow{}, nil
	}

	result := data.Chart.Result[0]
	var closes []null.Float
	if adj := result.Indicators.AdjClose; len(adj) > 0 {
		closes = adj[0].AdjClose
	} else if q := result.Indicators.Quote; len(q) > 0 {
		closes = q[0].Close
	}

	rows := make([]model.PriceRow, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || !closes[i].Valid || !(closes[i].Float64 > 0) {
			continue
		}
		date := time.Unix(ts, 0).In(p.loc).Format(model.DateLayout)
		if date > endDate {
			continue
		}
		rows = append(rows, model.PriceRow{Ticker: ticker, Date: date, AdjClose: closes[i].Float64})
	}

	if len(rows) > days {
		rows = rows[len(rows)-days:]
	}
	return rows, nil
}

func (p *YahooProvider) observe(outcome string, start time.Time) {
	if p.observer != nil {
		p.observer.ObserveRequest(p.Name(), outcome, time.Since(start))
	}
}
