package fundamentals

import (
	"errors"

	"truthline/internal/facts"
	"truthline/pkg/model"
)

// ErrNoQuarterlyData means no revenue concept produced a single aligned quarter
var ErrNoQuarterlyData = errors.New("no quarterly revenue data")

// Sentiment verdicts
const (
	SentimentFixingIt = "Fixing It (High Conviction)"
	SentimentAllTalk  = "All Talk (Low Conviction)"
	SentimentNone     = "No Constraints Detected"
)

const (
	constraintKeywordThreshold = 5
	capexIntensityThreshold    = 0.07
)

// Analysis is the reduced fundamentals of one filer
type Analysis struct {
	RevenueConcept string
	Quarters       []model.QuarterRecord
	MarginDeltas   []model.MarginDelta
	RevenueGrowth  []model.GrowthPoint
	Snapshot       model.Snapshot
}

// Analyze extracts the metric series from the fact store and reduces them.
// It fails with ErrNoQuarterlyData when revenue cannot be aligned.
func Analyze(store *model.CompanyFacts) (*Analysis, error) {
	tag, revenue := facts.ExtractNamed(store, facts.RevenueConcepts, facts.UnitUSD, facts.PeriodQuarterly)
	if len(revenue) == 0 {
		return nil, ErrNoQuarterlyData
	}

	opIncome := facts.Extract(store, facts.OperatingIncomeConcepts, facts.UnitUSD, facts.PeriodQuarterly)
	grossProfit := facts.Extract(store, facts.GrossProfitConcepts, facts.UnitUSD, facts.PeriodQuarterly)
	netIncome := facts.Extract(store, facts.NetIncomeConcepts, facts.UnitUSD, facts.PeriodQuarterly)
	rnd := facts.Extract(store, facts.RndConcepts, facts.UnitUSD, facts.PeriodQuarterly)

	quarters := BuildQuarters(revenue, opIncome, grossProfit, netIncome)

	// Capex is reported year to date in cash flow statements, so intensity is
	// measured on fiscal years against revenue of the same concept.
	annualRevenue := facts.Extract(store, []string{tag}, facts.UnitUSD, facts.PeriodAnnual)
	annualCapex := facts.Extract(store, facts.CapexConcepts, facts.UnitUSD, facts.PeriodAnnual)

	return &Analysis{
		RevenueConcept: tag,
		Quarters:       quarters,
		MarginDeltas:   MarginDeltas(quarters),
		RevenueGrowth:  RevenueGrowth(quarters),
		Snapshot:       snapshot(revenue, opIncome, rnd, annualRevenue, annualCapex),
	}, nil
}

func snapshot(revenue, opIncome, rnd, annualRevenue, annualCapex model.FactSeries) model.Snapshot {
	latest := revenue[0]
	key := latest.End.Format(model.DateLayout)
	op := opIncome.ByEnd()[key]

	s := model.Snapshot{
		Revenue:         latest.Val,
		OpIncome:        op,
		OperatingMargin: ratio(op, latest.Val),
		RndIntensity:    ratio(rnd.ByEnd()[key], latest.Val),
	}

	if len(annualCapex) > 0 {
		capex := annualCapex[0]
		if rev, ok := annualRevenue.ByEnd()[capex.End.Format(model.DateLayout)]; ok {
			s.CapexIntensity = ratio(capex.Val, rev)
		}
	}
	return s
}

// Sentiment classifies constraint talk against capital spending
func Sentiment(keywordCount int, capexIntensity float64) string {
	if keywordCount <= constraintKeywordThreshold {
		return SentimentNone
	}
	if capexIntensity > capexIntensityThreshold {
		return SentimentFixingIt
	}
	return SentimentAllTalk
}
