package strength

import (
	"sort"

	"github.com/guregu/null/v6"

	"truthline/internal/symbols"
	"truthline/pkg/model"
)

// Error messages carried in the result tree
const (
	ErrNoTargetData    = "No price data for target"
	ErrNoBenchmarkData = "No price data for benchmark"
)

// ComputeRelativeStrength evaluates every target against every benchmark on a
// shared date window. It never fails: missing data is reported per target or
// per pair in the result.
func ComputeRelativeStrength(targets, benchmarks []string, pricesByTicker map[string][]model.PriceRow, asOfDate string, override model.SettingsOverride) model.RSOutput {
	settings := override.Merge(model.DefaultRSSettings())

	lookups := buildLookups(pricesByTicker)
	asOf, window, lookbackDate := Window(AllDates(pricesByTicker), asOfDate, settings.WindowTradingDays)

	out := model.RSOutput{
		AsOfDate: asOf,
		Settings: settings,
		Results:  make([]model.TargetResult, 0, len(targets)),
	}

	for _, target := range targets {
		ticker := symbols.Normalize(target)
		tr := model.TargetResult{
			Ticker:     ticker,
			AsOfDate:   asOf,
			Benchmarks: []model.BenchmarkResult{},
		}

		targetLookup := lookups[ticker]
		if len(targetLookup) == 0 {
			tr.Error = null.StringFrom(ErrNoTargetData)
			out.Results = append(out.Results, tr)
			continue
		}

		for _, b := range benchmarks {
			bench := symbols.Normalize(b)
			benchLookup := lookups[bench]
			if len(benchLookup) == 0 {
				tr.Benchmarks = append(tr.Benchmarks, model.BenchmarkResult{
					Benchmark: bench,
					Error:     null.StringFrom(ErrNoBenchmarkData),
				})
				continue
			}

			res := ComputePairRS(targetLookup, benchLookup, window, lookbackDate, settings)
			res.Benchmark = bench
			tr.Benchmarks = append(tr.Benchmarks, res)
		}
		out.Results = append(out.Results, tr)
	}
	return out
}

// buildLookups keys the price lookups by normalized ticker. Keys differing only
// in case or padding are merged in sorted key order.
func buildLookups(pricesByTicker map[string][]model.PriceRow) map[string]model.PriceLookup {
	keys := make([]string, 0, len(pricesByTicker))
	for k := range pricesByTicker {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lookups := make(map[string]model.PriceLookup, len(keys))
	for _, k := range keys {
		ticker := symbols.Normalize(k)
		lookup := BuildLookup(pricesByTicker[k])
		if existing, ok := lookups[ticker]; ok {
			for d, p := range lookup {
				existing[d] = p
			}
			continue
		}
		lookups[ticker] = lookup
	}
	return lookups
}
