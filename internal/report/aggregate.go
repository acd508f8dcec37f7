// Package report folds stored expense items into the exportable report
// model: per-category totals, the two-currency summary block, chart series
// and ordered detail sections.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

// Totals is the output of the aggregation fold. Every figure is recomputed
// from the items themselves; the header's cached category totals are never
// used as input, so line items and summary can not drift apart.
type Totals struct {
	ByCategory  map[core.Category]decimal.Decimal
	OverallTWD  decimal.Decimal
	PersonalTWD decimal.Decimal
	AvgDayTWD   decimal.Decimal // whole TWD per display rule
	OverallUSD  decimal.Decimal
	PersonalUSD decimal.Decimal
	AvgDayUSD   decimal.Decimal
}

// Aggregate folds the per-category item collections into category totals and
// grand totals. It is a pure function of its inputs: no clock, no lookups,
// identical inputs always produce identical totals.
func Aggregate(header core.Header, items map[core.Category][]core.Item) Totals {
	byCat := make(map[core.Category]decimal.Decimal, len(core.Categories()))
	overall := decimal.Zero
	personal := decimal.Zero

	for _, cat := range core.Categories() {
		catTotal := decimal.Zero
		for _, it := range items[cat] {
			catTotal = catTotal.Add(it.TotalTWD())
			personal = personal.Add(it.PersonalTWD())
		}
		byCat[cat] = catTotal
		overall = overall.Add(catTotal)
	}

	t := Totals{
		ByCategory:  byCat,
		OverallTWD:  overall,
		PersonalTWD: personal,
	}

	if header.Days.Sign() > 0 {
		t.AvgDayTWD = overall.Div(header.Days).Round(0)
	}

	// USD figures are always derived from TWD by the trip-level rate, never
	// summed independently. A missing rate yields zeros, not a division error.
	if header.RateUSD.Sign() > 0 {
		t.OverallUSD = overall.Div(header.RateUSD).Round(2)
		t.PersonalUSD = personal.Div(header.RateUSD).Round(2)
		if header.Days.Sign() > 0 {
			t.AvgDayUSD = t.OverallUSD.Div(header.Days).Round(2)
		}
	}

	return t
}
