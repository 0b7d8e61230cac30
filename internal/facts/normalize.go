// Package facts turns raw XBRL unit records into clean, deduplicated series.
package facts

import (
	"sort"

	"truthline/pkg/model"
)

// Period selects which reporting spans survive normalization
type Period int

const (
	// PeriodAny keeps every span, including instant facts
	PeriodAny Period = iota
	// PeriodQuarterly keeps discrete quarters (80 to 100 day spans)
	PeriodQuarterly
	// PeriodAnnual keeps fiscal years (350 to 380 day spans)
	PeriodAnnual
)

const (
	quarterMinDays = 80
	quarterMaxDays = 100
	annualMinDays  = 350
	annualMaxDays  = 380
)

// Normalize filters raw records to 10-K/10-Q filings, optionally to discrete
// quarters, keeps the latest filing per period end and sorts newest first.
func Normalize(raw []model.FactPoint, wantQuarterly bool) model.FactSeries {
	if wantQuarterly {
		return NormalizePeriod(raw, PeriodQuarterly)
	}
	return NormalizePeriod(raw, PeriodAny)
}

// NormalizePeriod is Normalize with an explicit span filter
func NormalizePeriod(raw []model.FactPoint, period Period) model.FactSeries {
	latest := make(map[int64]model.FactPoint)

	for _, f := range raw {
		if !isPeriodicForm(f.Form) {
			continue
		}
		if !period.accepts(f) {
			continue
		}

		key := f.End.Unix()
		if prev, ok := latest[key]; ok && !f.Filed.After(prev.Filed) {
			continue
		}
		latest[key] = f
	}

	series := make(model.FactSeries, 0, len(latest))
	for _, f := range latest {
		series = append(series, f)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].End.After(series[j].End)
	})
	return series
}

func isPeriodicForm(form string) bool {
	return form == "10-K" || form == "10-Q"
}

func (p Period) accepts(f model.FactPoint) bool {
	switch p {
	case PeriodQuarterly:
		return inSpan(f, quarterMinDays, quarterMaxDays)
	case PeriodAnnual:
		return inSpan(f, annualMinDays, annualMaxDays)
	default:
		return true
	}
}

func inSpan(f model.FactPoint, minDays, maxDays int) bool {
	days := f.SpanDays()
	return days >= minDays && days <= maxDays
}
