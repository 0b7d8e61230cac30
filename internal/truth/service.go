// Package truth assembles the financial truth report of a ticker from SEC
// company facts and the latest annual report.
package truth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"truthline/internal/cache"
	"truthline/internal/edgar"
	"truthline/internal/filing"
	"truthline/internal/fundamentals"
	"truthline/internal/symbols"
	"truthline/pkg/model"
)

// DefaultTTL is how long a built report is reused
const DefaultTTL = time.Hour

const annualReportForm = "10-K"

// ErrInvalidTicker is returned for blank or malformed tickers
var ErrInvalidTicker = errors.New("invalid ticker")

// Source is the subset of the EDGAR client the service needs
type Source interface {
	LookupCIK(ctx context.Context, ticker string) (string, error)
	CompanyFacts(ctx context.Context, cik string) (*model.CompanyFacts, error)
	Submissions(ctx context.Context, cik string) (*edgar.Submissions, error)
	DocumentURL(cik string, f edgar.Filing) string
	FetchDocument(ctx context.Context, url string) (string, error)
}

// Service builds FinancialTruth reports
type Service struct {
	src   Source
	store cache.Store[model.FinancialTruth]
	ttl   time.Duration
	log   zerolog.Logger
}

// NewService creates a service. A nil store disables caching.
func NewService(src Source, store cache.Store[model.FinancialTruth], ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{src: src, store: store, ttl: ttl, log: log}
}

// Build returns the report for ticker. Missing quarterly revenue is the only
// fundamentals failure that fails the call; filing problems only blank the
// evidence.
func (s *Service) Build(ctx context.Context, ticker string) (*model.FinancialTruth, error) {
	ticker = symbols.Normalize(ticker)
	if !symbols.IsValid(ticker) {
		return nil, fmt.Errorf("%q: %w", ticker, ErrInvalidTicker)
	}

	if s.store != nil {
		if cached, err := s.store.Get(ctx, ticker); err == nil {
			return &cached, nil
		}
	}

	cik, err := s.src.LookupCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	store, err := s.src.CompanyFacts(ctx, cik)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}

	analysis, err := fundamentals.Analyze(store)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}

	evidence := s.evidence(ctx, ticker, cik)
	evidence.Sentiment = fundamentals.Sentiment(evidence.KeywordCount, analysis.Snapshot.CapexIntensity)

	report := model.FinancialTruth{
		Ticker:        ticker,
		CIK:           cik,
		EntityName:    store.EntityName,
		Metrics:       analysis.Snapshot,
		Evidence:      evidence,
		Quarters:      analysis.Quarters,
		MarginDeltas:  analysis.MarginDeltas,
		RevenueGrowth: analysis.RevenueGrowth,
	}

	s.log.Info().
		Str("ticker", ticker).
		Str("revenue_concept", analysis.RevenueConcept).
		Int("quarters", len(report.Quarters)).
		Int("keywords", evidence.KeywordCount).
		Msg("financial truth built")

	if s.store != nil {
		if err := s.store.Set(ctx, ticker, report, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("report cache write failed")
		}
	}
	return &report, nil
}

// evidence scans the latest 10-K. Every failure degrades to zero values.
func (s *Service) evidence(ctx context.Context, ticker, cik string) model.Evidence {
	var ev model.Evidence

	subs, err := s.src.Submissions(ctx, cik)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("submissions unavailable")
		return ev
	}

	f, ok := subs.Latest(annualReportForm)
	if !ok {
		return ev
	}
	ev.Latest10K = true
	ev.FilingURL = s.src.DocumentURL(cik, f)

	doc, err := s.src.FetchDocument(ctx, ev.FilingURL)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Str("url", ev.FilingURL).Msg("10-K text unavailable")
		return ev
	}

	signals := filing.Scan(filing.HTMLToText(doc))
	ev.KeywordCount = signals.KeywordCount
	ev.BusinessDescription = signals.BusinessDescription
	return ev
}
