package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

// ValueKind tells an export sink how to render a column value.
type ValueKind string

const (
	KindText     ValueKind = "text"
	KindNumber   ValueKind = "number"
	KindCurrency ValueKind = "currency"
	KindDate     ValueKind = "date"
)

// Column is one entry of a section's ordered column schema. Field names are
// internal identifiers; store labels never appear here.
type Column struct {
	Label string
	Field string
	Kind  ValueKind
	Width int // relative width hint for tabular sinks
}

// TotalBlock is a section's computed total plus its pre-formatted display
// string. For accommodation the display shows both figures, e.g.
// "12,592 (個人) / 18,888 (總計)".
type TotalBlock struct {
	Amount   decimal.Decimal
	Currency string
	Display  string
}

// Section is one non-empty category of the report: column schema, the items
// verbatim, and the total block. Rebuilt fresh on every model build.
type Section struct {
	ID      string
	Title   string
	Columns []Column
	Items   []core.Item
	Total   TotalBlock
}

// ChartPoint is one name/value pair of the category chart; the same series
// backs both pie and bar renderings.
type ChartPoint struct {
	Name  string
	Value decimal.Decimal
}

// Summary is the report's headline block.
type Summary struct {
	TotalTWD    decimal.Decimal
	PersonalTWD decimal.Decimal
	AvgDayTWD   decimal.Decimal
	TotalUSD    decimal.Decimal
	PersonalUSD decimal.Decimal
	AvgDayUSD   decimal.Decimal
	Days        decimal.Decimal
	Period      string
	RateUSD     decimal.Decimal
}

// Model is the fully aggregated, export-ready report. Every sink consumes it
// structurally unchanged.
type Model struct {
	ReportID string
	User     string
	Summary  Summary
	Chart    []ChartPoint
	Sections []Section
}

// BuildModel assembles the exportable model from the stored header and items.
// A report with no items in any category yields an empty section list and an
// all-zero summary, which is a valid renderable state.
func BuildModel(header core.Header, items map[core.Category][]core.Item, user string) Model {
	totals := Aggregate(header, items)

	m := Model{
		ReportID: header.ReportID,
		User:     user,
		Summary: Summary{
			TotalTWD:    totals.OverallTWD,
			PersonalTWD: totals.PersonalTWD,
			AvgDayTWD:   totals.AvgDayTWD,
			TotalUSD:    totals.OverallUSD,
			PersonalUSD: totals.PersonalUSD,
			AvgDayUSD:   totals.AvgDayUSD,
			Days:        header.Days,
			Period:      header.Period(),
			RateUSD:     header.RateUSD,
		},
	}

	for _, cat := range core.Categories() {
		catItems := items[cat]
		total := totals.ByCategory[cat]
		if total.Sign() > 0 {
			m.Chart = append(m.Chart, ChartPoint{Name: cat.String(), Value: total})
		}
		if len(catItems) == 0 {
			continue
		}
		m.Sections = append(m.Sections, Section{
			ID:      strings.ToLower(cat.String()),
			Title:   cat.Title(),
			Columns: sectionColumns(cat),
			Items:   catItems,
			Total:   totalBlock(cat, catItems, total),
		})
	}

	return m
}

func totalBlock(cat core.Category, items []core.Item, total decimal.Decimal) TotalBlock {
	if cat == core.CategoryAccommodation {
		personal := decimal.Zero
		for _, it := range items {
			personal = personal.Add(it.PersonalTWD())
		}
		return TotalBlock{
			Amount:   total,
			Currency: core.BaseCurrency,
			Display:  FormatGrouped(personal) + " (個人) / " + FormatGrouped(total) + " (總計)",
		}
	}
	return TotalBlock{
		Amount:   total,
		Currency: core.BaseCurrency,
		Display:  FormatGrouped(total),
	}
}

// FormatGrouped renders a decimal with thousands separators, keeping any
// fractional digits the value carries.
func FormatGrouped(v decimal.Decimal) string {
	s := v.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
		if len(intPart) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(intPart); i += 3 {
		b.WriteString(intPart[i : i+3])
		if i+3 < len(intPart) {
			b.WriteByte(',')
		}
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
