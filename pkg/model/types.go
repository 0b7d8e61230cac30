package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar date format used for prices and period keys
const DateLayout = "2006-01-02"

// FactPoint is one reported XBRL value for a concept
type FactPoint struct {
	Start time.Time `json:"start,omitempty"` // zero for instant facts
	End   time.Time `json:"end"`
	Val   float64   `json:"val"`
	Form  string    `json:"form"`
	Filed time.Time `json:"filed"`
	FY    int       `json:"fy,omitempty"`
	FP    string    `json:"fp,omitempty"`
	Frame string    `json:"frame,omitempty"`
}

// SpanDays returns the number of days covered by the fact, or -1 for instant facts
func (f FactPoint) SpanDays() int {
	if f.Start.IsZero() {
		return -1
	}
	return int(f.End.Sub(f.Start).Hours() / 24)
}

// FactSeries is a normalized series for one concept, newest first
type FactSeries []FactPoint

// ByEnd indexes the series values by period-end date
func (s FactSeries) ByEnd() map[string]float64 {
	m := make(map[string]float64, len(s))
	for _, p := range s {
		m[p.End.Format(DateLayout)] = p.Val
	}
	return m
}

// Concept is a single taxonomy tag with its facts grouped by unit
type Concept struct {
	Label       string                 `json:"label"`
	Description string                 `json:"description"`
	Units       map[string][]FactPoint `json:"units"`
}

// CompanyFacts is the fact store for one filer: taxonomy -> concept -> units
type CompanyFacts struct {
	CIK        string                        `json:"cik"`
	EntityName string                        `json:"entityName"`
	Facts      map[string]map[string]Concept `json:"facts"`
}

// QuarterRecord is one synthesized reporting period
type QuarterRecord struct {
	Period      string  `json:"period"` // YYYY-MM
	Revenue     float64 `json:"revenue"`
	Growth      float64 `json:"growth"` // QoQ fraction
	GrossMargin float64 `json:"grossMargin"`
	OpMargin    float64 `json:"opMargin"`
	NetMargin   float64 `json:"netMargin"`
}

// MarginDelta is the sequential margin change between two quarters in basis points
type MarginDelta struct {
	Period     string `json:"period"`
	GrossDelta int64  `json:"grossDelta"`
	OpDelta    int64  `json:"opDelta"`
	NetDelta   int64  `json:"netDelta"`
}

// GrowthPoint is the QoQ revenue growth of a quarter in percent
type GrowthPoint struct {
	Period    string  `json:"period"`
	GrowthPct float64 `json:"growth"`
}

// Snapshot holds the headline fundamentals of the latest periods
type Snapshot struct {
	Revenue         float64 `json:"revenue"`
	OpIncome        float64 `json:"opIncome"`
	OperatingMargin float64 `json:"operatingMargin"`
	CapexIntensity  float64 `json:"capexIntensity"`
	RndIntensity    float64 `json:"rndIntensity"`
}

// Evidence summarizes what the latest 10-K says about constraints
type Evidence struct {
	KeywordCount        int    `json:"keywordCount"`
	Latest10K           bool   `json:"latest10K"`
	Sentiment           string `json:"sentiment"`
	BusinessDescription string `json:"businessDescription"`
	FilingURL           string `json:"filingUrl,omitempty"`
}

// FinancialTruth is the fundamentals report for one ticker
type FinancialTruth struct {
	Ticker        string          `json:"ticker"`
	CIK           string          `json:"cik"`
	EntityName    string          `json:"entityName"`
	Metrics       Snapshot        `json:"metrics"`
	Evidence      Evidence        `json:"evidence"`
	Quarters      []QuarterRecord `json:"chartData"`
	MarginDeltas  []MarginDelta   `json:"marginDeltas"`
	RevenueGrowth []GrowthPoint   `json:"revenueGrowthData"`
}

// PriceRow is one daily adjusted close for a ticker
type PriceRow struct {
	Ticker   string  `json:"ticker"`
	Date     string  `json:"date"` // YYYY-MM-DD
	AdjClose float64 `json:"adjClose"`
}

// PriceLookup maps a date to the adjusted close of one ticker
type PriceLookup map[string]float64

// RSSettings controls the relative strength computation
type RSSettings struct {
	WindowTradingDays int     `json:"windowTradingDays" yaml:"window_trading_days" default:"252" validate:"min=1"`
	MaTradingDays     int     `json:"maTradingDays" yaml:"ma_trading_days" default:"50" validate:"min=1"`
	MinCoveragePct    float64 `json:"minCoveragePct" yaml:"min_coverage_pct" default:"0.6" validate:"gte=0,lte=1"`
}

// DefaultRSSettings returns the default relative strength settings
func DefaultRSSettings() RSSettings {
	return RSSettings{
		WindowTradingDays: 252,
		MaTradingDays:     50,
		MinCoveragePct:    0.6,
	}
}

// SettingsOverride carries caller overrides; nil fields keep the base value
type SettingsOverride struct {
	WindowTradingDays *int     `json:"windowTradingDays,omitempty" validate:"omitempty,min=1,max=2000"`
	MaTradingDays     *int     `json:"maTradingDays,omitempty" validate:"omitempty,min=1,max=500"`
	MinCoveragePct    *float64 `json:"minCoveragePct,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Override returns an override that pins every field to s
func (s RSSettings) Override() SettingsOverride {
	return SettingsOverride{
		WindowTradingDays: &s.WindowTradingDays,
		MaTradingDays:     &s.MaTradingDays,
		MinCoveragePct:    &s.MinCoveragePct,
	}
}

// Merge applies the override on top of base
func (o SettingsOverride) Merge(base RSSettings) RSSettings {
	out := base
	if o.WindowTradingDays != nil {
		out.WindowTradingDays = *o.WindowTradingDays
	}
	if o.MaTradingDays != nil {
		out.MaTradingDays = *o.MaTradingDays
	}
	if o.MinCoveragePct != nil {
		out.MinCoveragePct = *o.MinCoveragePct
	}
	return out
}

// BenchmarkResult is the relative strength of a target against one benchmark
type BenchmarkResult struct {
	Benchmark   string      `json:"benchmark"`
	RSLevel     null.Float  `json:"rsLevel"`
	RSReturn    null.Float  `json:"rsReturn"`
	RSMA        null.Float  `json:"rsMA"`
	RSVsMA      null.String `json:"rsVsMA"` // "above" | "below"
	CoveragePct float64     `json:"coveragePct"`
	Error       null.String `json:"error"`
}

// TargetResult groups the benchmark results of one target
type TargetResult struct {
	Ticker     string            `json:"ticker"`
	AsOfDate   string            `json:"asOfDate"`
	Benchmarks []BenchmarkResult `json:"benchmarks"`
	Error      null.String       `json:"error"`
}

// RSOutput is the relative strength report
type RSOutput struct {
	AsOfDate string         `json:"asOfDate"`
	Settings RSSettings     `json:"settings"`
	Results  []TargetResult `json:"results"`
}
