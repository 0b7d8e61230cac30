// Package scanner builds financial truth reports for many tickers in parallel.
package scanner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"truthline/internal/symbols"
	"truthline/pkg/model"
)

// Builder builds one report
type Builder interface {
	Build(ctx context.Context, ticker string) (*model.FinancialTruth, error)
}

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Outcome is the result for one ticker; exactly one of Report and Err is set
type Outcome struct {
	Ticker string
	Report *model.FinancialTruth
	Err    error
}

// Result is the result of a batch
type Result struct {
	Outcomes []Outcome // in input order
	Failed   int
	ScanTime time.Duration
}

// Scanner performs parallel report builds
type Scanner struct {
	builder      Builder
	workers      int
	timeout      time.Duration
	progressFunc ProgressCallback
}

// NewScanner creates a new scanner. The builder's own rate limits still apply,
// so workers only overlap network latency.
func NewScanner(b Builder, workers int, timeout time.Duration) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{builder: b, workers: workers, timeout: timeout}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

type job struct {
	idx    int
	ticker string
}

// Scan builds a report per ticker. Tickers are normalized and deduplicated;
// per-ticker failures are carried in the outcomes and never fail the batch.
func (s *Scanner) Scan(ctx context.Context, tickers []string) *Result {
	startTime := time.Now()
	tickers = symbols.NormalizeList(tickers)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	jobs := make(chan job, len(tickers))
	for i, t := range tickers {
		jobs <- job{idx: i, ticker: t}
	}
	close(jobs)

	outcomes := make([]Outcome, len(tickers))
	var scanned int64

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				out := Outcome{Ticker: j.ticker}
				if err := ctx.Err(); err != nil {
					out.Err = err
				} else {
					out.Report, out.Err = s.builder.Build(ctx, j.ticker)
				}
				outcomes[j.idx] = out

				count := atomic.AddInt64(&scanned, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(tickers))
				}
			}
		}()
	}
	wg.Wait()

	res := &Result{Outcomes: outcomes, ScanTime: time.Since(startTime)}
	for _, o := range outcomes {
		if o.Err != nil {
			res.Failed++
		}
	}
	return res
}

// Reports returns the successful reports sorted by ticker
func (r *Result) Reports() []*model.FinancialTruth {
	var out []*model.FinancialTruth
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o.Report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
