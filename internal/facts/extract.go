package facts

import "truthline/pkg/model"

const (
	// TaxonomyUSGAAP is the only taxonomy the extractor reads
	TaxonomyUSGAAP = "us-gaap"
	// UnitUSD is the monetary unit of the income and cash flow concepts
	UnitUSD = "USD"
)

// Concept candidate lists in priority order. Filers use different tags for the
// same line item; the first tag that yields data wins.
var (
	RevenueConcepts = []string{
		"Revenues",
		"SalesRevenueNet",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"RevenueFromContractWithCustomerIncludingAssessedTax",
		"SalesRevenueGoodsNet",
	}
	OperatingIncomeConcepts = []string{"OperatingIncomeLoss"}
	GrossProfitConcepts     = []string{"GrossProfit"}
	NetIncomeConcepts       = []string{
		"NetIncomeLoss",
		"ProfitLoss",
		"NetIncomeLossAvailableToCommonStockholdersBasic",
	}
	CapexConcepts = []string{
		"PaymentsToAcquirePropertyPlantAndEquipment",
		"PaymentsToAcquireProductiveAssets",
	}
	RndConcepts = []string{
		"ResearchAndDevelopmentExpense",
		"ResearchAndDevelopmentExpenseExcludingAcquiredInProcessCost",
	}
)

// Extract returns the first non-empty normalized series among the candidate
// concepts. Series from different candidates are never merged.
func Extract(store *model.CompanyFacts, candidates []string, unit string, period Period) model.FactSeries {
	_, series := ExtractNamed(store, candidates, unit, period)
	return series
}

// ExtractNamed is Extract that also reports which concept matched
func ExtractNamed(store *model.CompanyFacts, candidates []string, unit string, period Period) (string, model.FactSeries) {
	if store == nil {
		return "", nil
	}
	gaap, ok := store.Facts[TaxonomyUSGAAP]
	if !ok {
		return "", nil
	}

	for _, tag := range candidates {
		concept, ok := gaap[tag]
		if !ok {
			continue
		}
		units, ok := concept.Units[unit]
		if !ok || len(units) == 0 {
			continue
		}
		if series := NormalizePeriod(units, period); len(series) > 0 {
			return tag, series
		}
	}
	return "", nil
}
