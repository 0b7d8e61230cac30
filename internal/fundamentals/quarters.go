// Package fundamentals reduces aligned XBRL series into quarterly margin and
// growth tables and the headline snapshot of a filer.
package fundamentals

import (
	"github.com/shopspring/decimal"

	"truthline/pkg/model"
)

const (
	// QuarterWindow is the number of quarters reported
	QuarterWindow = 6
	periodLayout  = "2006-01"
)

// BuildQuarters reduces the revenue series and its matched series into the
// newest QuarterWindow records, oldest first. All series are newest first.
// Matched series are joined by exact period end; a missing value counts as 0.
func BuildQuarters(revenue, opIncome, grossProfit, netIncome model.FactSeries) []model.QuarterRecord {
	if len(revenue) == 0 {
		return nil
	}

	n := QuarterWindow
	if len(revenue) < n {
		n = len(revenue)
	}

	opByEnd := opIncome.ByEnd()
	gpByEnd := grossProfit.ByEnd()
	niByEnd := netIncome.ByEnd()

	records := make([]model.QuarterRecord, 0, n)
	for i := n - 1; i >= 0; i-- {
		cur := revenue[i]
		key := cur.End.Format(model.DateLayout)

		rec := model.QuarterRecord{
			Period:  cur.End.Format(periodLayout),
			Revenue: cur.Val,
		}
		// revenue[i+1] is the 7th lookback quarter for the oldest record
		if i+1 < len(revenue) {
			rec.Growth = growth(cur.Val, revenue[i+1].Val)
		}
		rec.GrossMargin = ratio(gpByEnd[key], cur.Val)
		rec.OpMargin = ratio(opByEnd[key], cur.Val)
		rec.NetMargin = ratio(niByEnd[key], cur.Val)

		records = append(records, rec)
	}
	return records
}

// MarginDeltas returns the sequential margin change of consecutive quarters in
// basis points, one row per quarter after the first.
func MarginDeltas(quarters []model.QuarterRecord) []model.MarginDelta {
	if len(quarters) < 2 {
		return nil
	}

	deltas := make([]model.MarginDelta, 0, len(quarters)-1)
	for i := 0; i < len(quarters)-1; i++ {
		prev, next := quarters[i], quarters[i+1]
		deltas = append(deltas, model.MarginDelta{
			Period:     next.Period,
			GrossDelta: bps(next.GrossMargin, prev.GrossMargin),
			OpDelta:    bps(next.OpMargin, prev.OpMargin),
			NetDelta:   bps(next.NetMargin, prev.NetMargin),
		})
	}
	return deltas
}

// RevenueGrowth converts the quarterly growth fractions to percent with one decimal
func RevenueGrowth(quarters []model.QuarterRecord) []model.GrowthPoint {
	points := make([]model.GrowthPoint, 0, len(quarters))
	for _, q := range quarters {
		pct, _ := decimal.NewFromFloat(q.Growth).Shift(2).Round(1).Float64()
		points = append(points, model.GrowthPoint{Period: q.Period, GrowthPct: pct})
	}
	return points
}

func growth(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

var bpsPerUnit = decimal.NewFromInt(10000)

// bps rounds (next - prev) * 10000 half away from zero, in decimal arithmetic
// so float noise in the margins does not leak into the integer result.
func bps(next, prev float64) int64 {
	return decimal.NewFromFloat(next).
		Sub(decimal.NewFromFloat(prev)).
		Mul(bpsPerUnit).
		Round(0).
		IntPart()
}
