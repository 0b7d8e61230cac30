// Package strength computes the relative strength of target tickers against
// benchmark tickers from daily adjusted closes.
package strength

import (
	"fmt"
	"math"
	"sort"

	"github.com/guregu/null/v6"

	"truthline/pkg/model"
)

const (
	// RSAbove and RSBelow are the values of BenchmarkResult.RSVsMA
	RSAbove = "above"
	RSBelow = "below"
)

// rsPoint is one ratio observation
type rsPoint struct {
	date  string
	level float64
}

// BuildLookup maps dates to adjusted closes, dropping non-positive and
// non-finite prices. Later rows for the same date replace earlier ones.
func BuildLookup(rows []model.PriceRow) model.PriceLookup {
	lookup := make(model.PriceLookup, len(rows))
	for _, r := range rows {
		if r.AdjClose > 0 && !math.IsInf(r.AdjClose, 1) {
			lookup[r.Date] = r.AdjClose
		}
	}
	return lookup
}

// AllDates returns the sorted union of every row date across tickers,
// including rows whose price was later dropped from the lookups
func AllDates(pricesByTicker map[string][]model.PriceRow) []string {
	set := make(map[string]struct{})
	for _, rows := range pricesByTicker {
		for _, r := range rows {
			set[r.Date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Window locates asOfDate in the sorted date grid, falling back to the last
// date, and returns the effective as-of date, the window of at most
// windowDays+1 dates ending there and the lookback date at the window start.
// With no dates at all the requested asOfDate is echoed back.
func Window(allDates []string, asOfDate string, windowDays int) (asOf string, window []string, lookbackDate string) {
	if len(allDates) == 0 {
		return asOfDate, nil, asOfDate
	}

	idx := sort.SearchStrings(allDates, asOfDate)
	if idx >= len(allDates) || allDates[idx] != asOfDate {
		idx = len(allDates) - 1
	}

	start := idx - windowDays
	if start < 0 {
		start = 0
	}
	return allDates[idx], allDates[start : idx+1], allDates[start]
}

// ComputePairRS computes the ratio series of target over benchmark on the
// window dates and reduces it to level, return, moving average and the
// coverage gate. The Benchmark field of the result is left empty.
func ComputePairRS(target, bench model.PriceLookup, windowDates []string, lookbackDate string, settings model.RSSettings) model.BenchmarkResult {
	series := make([]rsPoint, 0, len(windowDates))
	for _, d := range windowDates {
		pt, okT := target[d]
		pb, okB := bench[d]
		if okT && okB && pt > 0 && pb > 0 {
			series = append(series, rsPoint{date: d, level: pt / pb})
		}
	}

	var coverage float64
	if len(windowDates) > 0 {
		coverage = float64(len(series)) / float64(len(windowDates))
	}

	if len(series) == 0 || coverage < settings.MinCoveragePct || len(series) < settings.MaTradingDays {
		return model.BenchmarkResult{
			CoveragePct: coverage,
			Error:       null.StringFrom(insufficientOverlap(coverage)),
		}
	}

	latest := series[len(series)-1]

	lookback := series[0]
	for _, p := range series {
		if p.date > lookbackDate {
			break
		}
		lookback = p
	}

	res := model.BenchmarkResult{
		RSLevel:     null.FloatFrom(latest.level),
		CoveragePct: coverage,
	}
	if lookback.level > 0 {
		res.RSReturn = null.FloatFrom(latest.level/lookback.level - 1)
	}

	levels := make([]float64, len(series))
	for i, p := range series {
		levels[i] = p.level
	}
	if ma, ok := movingAverage(levels, settings.MaTradingDays); ok {
		res.RSMA = null.FloatFrom(ma)
		// strict: a tie is below
		if latest.level > ma {
			res.RSVsMA = null.StringFrom(RSAbove)
		} else {
			res.RSVsMA = null.StringFrom(RSBelow)
		}
	}
	return res
}

// movingAverage is the mean of the trailing n values
func movingAverage(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

func insufficientOverlap(coverage float64) string {
	return fmt.Sprintf("Insufficient data overlap (%d%% coverage)", int(math.Round(coverage*100)))
}
