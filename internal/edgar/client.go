// Package edgar is a client for the SEC EDGAR ticker map, XBRL company facts,
// submissions and archived filing documents.
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"truthline/internal/cache"
	"truthline/internal/ratelimit"
	"truthline/internal/symbols"
	"truthline/pkg/model"
)

const (
	DefaultWWWBaseURL  = "https://www.sec.gov"
	DefaultDataBaseURL = "https://data.sec.gov"
	// SEC fair access allows 10 requests per second
	DefaultRequestsPerSecond = 10
	DefaultTickerTTL         = 24 * time.Hour

	tickerMapKey     = "company_tickers"
	maxDocumentBytes = 32 << 20
	maxAttempts      = 3
)

var (
	// ErrTickerNotFound means the ticker is not in the SEC ticker map
	ErrTickerNotFound = errors.New("ticker not found in SEC database")
	// ErrNotFound is an upstream 404
	ErrNotFound = errors.New("not found")
	// ErrNoUserAgent is returned when the client has no contact User-Agent
	ErrNoUserAgent = errors.New("SEC requests require a User-Agent")
)

// RequestObserver records the outcome of upstream calls
type RequestObserver interface {
	ObserveRequest(upstream, outcome string, elapsed time.Duration)
}

// StatusError is a non-2xx answer from SEC
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("SEC returned %d for %s", e.Status, e.URL)
}

// Config holds the client settings
type Config struct {
	UserAgent         string        `yaml:"user_agent"` // required by SEC, checked per request
	WWWBaseURL        string        `yaml:"www_base_url" default:"https://www.sec.gov" validate:"url"`
	DataBaseURL       string        `yaml:"data_base_url" default:"https://data.sec.gov" validate:"url"`
	RequestsPerSecond int           `yaml:"requests_per_second" default:"10" validate:"min=1,max=10"`
	Timeout           time.Duration `yaml:"timeout" default:"30s"`
	TickerTTL         time.Duration `yaml:"ticker_ttl" default:"24h"`
}

// Client talks to SEC EDGAR
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *ratelimit.Limiter
	tickers  cache.Store[map[string]string]
	observer RequestObserver
	log      zerolog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithTickerStore shares the ticker map cache
func WithTickerStore(s cache.Store[map[string]string]) Option {
	return func(c *Client) { c.tickers = s }
}

// WithObserver records upstream calls
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the client logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client. Zero config fields take the SEC defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.WWWBaseURL == "" {
		cfg.WWWBaseURL = DefaultWWWBaseURL
	}
	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = DefaultDataBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TickerTTL <= 0 {
		cfg.TickerTTL = DefaultTickerTTL
	}
	cfg.WWWBaseURL = strings.TrimRight(cfg.WWWBaseURL, "/")
	cfg.DataBaseURL = strings.TrimRight(cfg.DataBaseURL, "/")

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.NewSpacedLimiter("sec", time.Second/time.Duration(cfg.RequestsPerSecond)),
		tickers: cache.NewMemoryStore[map[string]string](),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PadCIK renders a CIK as the 10 digit zero padded form used by data.sec.gov
func PadCIK(cik int64) string {
	return fmt.Sprintf("%010d", cik)
}

// UnpadCIK strips the zero padding used in archive paths
func UnpadCIK(cik string) string {
	n, err := strconv.ParseInt(cik, 10, 64)
	if err != nil {
		return strings.TrimLeft(cik, "0")
	}
	return strconv.FormatInt(n, 10)
}

type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// TickerMap returns ticker -> padded CIK, cached for the ticker TTL
func (c *Client) TickerMap(ctx context.Context) (map[string]string, error) {
	if m, err := c.tickers.Get(ctx, tickerMapKey); err == nil && len(m) > 0 {
		return m, nil
	}

	body, err := c.get(ctx, c.cfg.WWWBaseURL+"/files/company_tickers.json")
	if err != nil {
		return nil, fmt.Errorf("fetch company tickers: %w", err)
	}

	// {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
	var resp map[string]tickerEntry
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse company tickers: %w", err)
	}

	m := make(map[string]string, len(resp))
	for _, e := range resp {
		m[symbols.Normalize(e.Ticker)] = PadCIK(e.CIK)
	}

	if err := c.tickers.Set(ctx, tickerMapKey, m, c.cfg.TickerTTL); err != nil {
		c.log.Warn().Err(err).Msg("ticker map cache write failed")
	}
	c.log.Debug().Int("tickers", len(m)).Msg("loaded SEC ticker map")
	return m, nil
}

// LookupCIK resolves a ticker to its padded CIK
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, error) {
	m, err := c.TickerMap(ctx)
	if err != nil {
		return "", err
	}
	cik, ok := m[symbols.Normalize(ticker)]
	if !ok {
		return "", fmt.Errorf("%s: %w", symbols.Normalize(ticker), ErrTickerNotFound)
	}
	return cik, nil
}

type companyFactsResponse struct {
	CIK        json.Number                         `json:"cik"`
	EntityName string                              `json:"entityName"`
	Facts      map[string]map[string]model.Concept `json:"facts"`
}

// CompanyFacts fetches the XBRL fact store of a filer
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*model.CompanyFacts, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.cfg.DataBaseURL, cik))
	if err != nil {
		return nil, fmt.Errorf("fetch company facts: %w", err)
	}

	var resp companyFactsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse company facts: %w", err)
	}
	return &model.CompanyFacts{
		CIK:        cik,
		EntityName: resp.EntityName,
		Facts:      resp.Facts,
	}, nil
}

// Submissions fetches the filing history of a filer
func (c *Client) Submissions(ctx context.Context, cik string) (*Submissions, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/submissions/CIK%s.json", c.cfg.DataBaseURL, cik))
	if err != nil {
		return nil, fmt.Errorf("fetch submissions: %w", err)
	}

	var s Submissions
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("parse submissions: %w", err)
	}
	return &s, nil
}

// DocumentURL is the archive location of a filing's primary document
func (c *Client) DocumentURL(cik string, f Filing) string {
	accession := strings.ReplaceAll(f.AccessionNumber, "-", "")
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s", c.cfg.WWWBaseURL, UnpadCIK(cik), accession, f.PrimaryDocument)
}

// FetchDocument downloads a filing document as text
func (c *Client) FetchDocument(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	return string(body), nil
}

// get performs a paced GET, retrying 429 answers with backoff
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if c.cfg.UserAgent == "" {
		return nil, ErrNoUserAgent
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, retry, err := c.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.SignalRateLimited()
		c.observe("rate_limited", start)
		c.log.Warn().Str("url", url).Dur("backoff", c.limiter.GetBackoff()).Msg("SEC rate limited")
		return nil, true, &StatusError{URL: url, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		c.observe("not_found", start)
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		c.observe("error", start)
		return nil, false, &StatusError{URL: url, Status: resp.StatusCode}
	}

	c.limiter.ResetBackoff()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		c.observe("error", start)
		return nil, false, fmt.Errorf("reading body: %w", err)
	}
	c.observe("ok", start)
	return body, false, nil
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest("sec", outcome, time.Since(start))
	}
}
