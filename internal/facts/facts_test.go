package facts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truthline/pkg/model"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func fact(start, end string, val float64, form, filed string) model.FactPoint {
	f := model.FactPoint{End: day(end), Val: val, Form: form, Filed: day(filed)}
	if start != "" {
		f.Start = day(start)
	}
	return f
}

func TestNormalizeFiltersForms(t *testing.T) {
	raw := []model.FactPoint{
		fact("2024-01-01", "2024-03-31", 10, "10-Q", "2024-05-01"),
		fact("2024-04-01", "2024-06-30", 11, "8-K", "2024-07-01"),
		fact("2024-04-01", "2024-06-30", 12, "10-Q/A", "2024-08-01"),
	}

	series := Normalize(raw, false)
	require.Len(t, series, 1)
	assert.Equal(t, 10.0, series[0].Val)
}

func TestNormalizeQuarterlySpan(t *testing.T) {
	raw := []model.FactPoint{
		fact("2024-01-01", "2024-03-31", 10, "10-Q", "2024-05-01"), // 90 days
		fact("2024-01-01", "2024-06-30", 25, "10-Q", "2024-08-01"), // year to date
		fact("2023-01-01", "2023-12-31", 40, "10-K", "2024-02-15"), // annual
		fact("", "2024-06-30", 99, "10-Q", "2024-08-01"),           // instant
		fact("2024-07-01", "2024-09-19", 13, "10-Q", "2024-11-01"), // 80 days
		fact("2024-10-01", "2025-01-09", 14, "10-K", "2025-02-01"), // 100 days
		fact("2024-10-01", "2025-01-10", 15, "10-K", "2025-02-01"), // 101 days
	}

	series := Normalize(raw, true)
	require.Len(t, series, 3)
	assert.Equal(t, 14.0, series[0].Val)
	assert.Equal(t, 13.0, series[1].Val)
	assert.Equal(t, 10.0, series[2].Val)
}

func TestNormalizeKeepsLatestFiled(t *testing.T) {
	raw := []model.FactPoint{
		fact("2024-01-01", "2024-03-31", 10, "10-Q", "2024-05-01"),
		fact("2024-01-01", "2024-03-31", 12, "10-K", "2025-02-20"), // restated in next annual
		fact("2024-01-01", "2024-03-31", 11, "10-Q", "2024-09-01"),
	}

	series := Normalize(raw, true)
	require.Len(t, series, 1)
	assert.Equal(t, 12.0, series[0].Val)
}

func TestNormalizeFiledTieKeepsFirst(t *testing.T) {
	raw := []model.FactPoint{
		fact("2024-01-01", "2024-03-31", 10, "10-Q", "2024-05-01"),
		fact("2024-01-01", "2024-03-31", 20, "10-Q", "2024-05-01"),
	}

	series := Normalize(raw, true)
	require.Len(t, series, 1)
	assert.Equal(t, 10.0, series[0].Val)
}

func TestNormalizeUniqueDescending(t *testing.T) {
	var raw []model.FactPoint
	start := day("2020-01-01")
	for i := 0; i < 20; i++ {
		s := start.AddDate(0, 3*i, 0)
		e := s.AddDate(0, 3, -1)
		filed := e.AddDate(0, 1, 0)
		raw = append(raw,
			model.FactPoint{Start: s, End: e, Val: float64(i), Form: "10-Q", Filed: filed},
			model.FactPoint{Start: s, End: e, Val: float64(i) + 0.5, Form: "10-Q", Filed: filed.AddDate(0, 0, 3)},
		)
	}

	series := Normalize(raw, true)
	require.Len(t, series, 20)
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].End.After(series[i].End), "dates must be strictly descending at %d", i)
	}
	for _, p := range series {
		assert.Equal(t, 0.5, p.Val-float64(int(p.Val)), "amended value must win")
	}
}

func TestNormalizeAnnual(t *testing.T) {
	raw := []model.FactPoint{
		fact("2023-01-30", "2024-01-28", 60922, "10-K", "2024-02-21"),
		fact("2023-10-30", "2024-01-28", 22103, "10-K", "2024-02-21"),
	}

	series := NormalizePeriod(raw, PeriodAnnual)
	require.Len(t, series, 1)
	assert.Equal(t, 60922.0, series[0].Val)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil, true))
}

func storeWith(concepts map[string][]model.FactPoint) *model.CompanyFacts {
	gaap := make(map[string]model.Concept)
	for name, units := range concepts {
		gaap[name] = model.Concept{Units: map[string][]model.FactPoint{UnitUSD: units}}
	}
	return &model.CompanyFacts{Facts: map[string]map[string]model.Concept{TaxonomyUSGAAP: gaap}}
}

func TestExtractFallsThroughEmptyCandidate(t *testing.T) {
	store := storeWith(map[string][]model.FactPoint{
		// present, but only year-to-date spans: empty after quarterly filtering
		"Revenues": {fact("2024-01-01", "2024-06-30", 500, "10-Q", "2024-08-01")},
		"RevenueFromContractWithCustomerExcludingAssessedTax": {
			fact("2024-04-01", "2024-06-30", 260, "10-Q", "2024-08-01"),
		},
	})

	tag, series := ExtractNamed(store, RevenueConcepts, UnitUSD, PeriodQuarterly)
	assert.Equal(t, "RevenueFromContractWithCustomerExcludingAssessedTax", tag)
	require.Len(t, series, 1)
	assert.Equal(t, 260.0, series[0].Val)
}

func TestExtractFirstHitWins(t *testing.T) {
	store := storeWith(map[string][]model.FactPoint{
		"Revenues": {fact("2024-01-01", "2024-03-31", 100, "10-Q", "2024-05-01")},
		"SalesRevenueNet": {
			fact("2023-10-01", "2023-12-31", 90, "10-Q", "2024-02-01"),
			fact("2024-01-01", "2024-03-31", 101, "10-Q", "2024-05-01"),
		},
	})

	series := Extract(store, RevenueConcepts, UnitUSD, PeriodQuarterly)
	require.Len(t, series, 1, "later candidates must not be blended in")
	assert.Equal(t, 100.0, series[0].Val)
}

func TestExtractMissing(t *testing.T) {
	assert.Empty(t, Extract(nil, RevenueConcepts, UnitUSD, PeriodQuarterly))
	assert.Empty(t, Extract(&model.CompanyFacts{}, RevenueConcepts, UnitUSD, PeriodQuarterly))

	store := storeWith(map[string][]model.FactPoint{"Other": {fact("2024-01-01", "2024-03-31", 1, "10-Q", "2024-05-01")}})
	assert.Empty(t, Extract(store, RevenueConcepts, UnitUSD, PeriodQuarterly))
}
