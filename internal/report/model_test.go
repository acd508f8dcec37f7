package report

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

func TestBuildModelSingleCategory(t *testing.T) {
	// Only a taxi item: exactly one section and one chart entry.
	header := core.Header{ReportID: "R0012", Days: d("4"), RateUSD: d("31.48"), StartDate: "2026/01/10", EndDate: "2026/01/14"}
	items := map[core.Category][]core.Item{
		core.CategoryTaxi: {taxiItem(1, "630")},
	}

	m := BuildModel(header, items, "jdoe")

	if len(m.Sections) != 1 {
		t.Fatalf("sections: got %d, want 1", len(m.Sections))
	}
	sec := m.Sections[0]
	if sec.ID != "taxi" {
		t.Fatalf("section id: got %q", sec.ID)
	}
	if !sec.Total.Amount.Equal(d("630")) || sec.Total.Currency != "TWD" {
		t.Fatalf("section total: %s %s", sec.Total.Amount, sec.Total.Currency)
	}
	if sec.Total.Display != "630" {
		t.Fatalf("section display: %q", sec.Total.Display)
	}
	if len(m.Chart) != 1 || m.Chart[0].Name != "Taxi" || !m.Chart[0].Value.Equal(d("630")) {
		t.Fatalf("chart: %+v", m.Chart)
	}
	if m.Summary.Period != "2026/01/10 - 2026/01/14" {
		t.Fatalf("period: %q", m.Summary.Period)
	}
}

func TestBuildModelSectionOrder(t *testing.T) {
	header := core.Header{ReportID: "R0013", Days: d("2"), RateUSD: d("31.48")}
	flight := core.Item{
		Category: core.CategoryFlight, Sequence: 1, Date: core.NewDate(2026, 1, 2),
		Currency: "USD", Rate: d("31.48"), Amount: d("150"), TWDAmount: d("4722"),
		Flight: &core.FlightDetails{Code: "BR189", Departure: "TPE", Arrival: "KIX"},
	}
	gift := core.Item{
		Category: core.CategoryGift, Sequence: 1, Date: core.NewDate(2026, 1, 3),
		Currency: "TWD", Rate: d("1"), Amount: d("880"), TWDAmount: d("880"),
	}
	// Entry order deliberately reversed; display order must win.
	items := map[core.Category][]core.Item{
		core.CategoryGift:          {gift},
		core.CategoryAccommodation: {lodgingItem(1, "2000", "1000")},
		core.CategoryFlight:        {flight},
	}

	m := BuildModel(header, items, "jdoe")

	wantOrder := []string{"flight", "accommodation", "gift"}
	if len(m.Sections) != len(wantOrder) {
		t.Fatalf("sections: got %d, want %d", len(m.Sections), len(wantOrder))
	}
	for i, want := range wantOrder {
		if m.Sections[i].ID != want {
			t.Fatalf("section %d: got %q, want %q", i, m.Sections[i].ID, want)
		}
	}
}

func TestBuildModelLodgingDisplaySplit(t *testing.T) {
	header := core.Header{ReportID: "R0014", Days: d("2")}
	items := map[core.Category][]core.Item{
		core.CategoryAccommodation: {lodgingItem(1, "12592", "6296")},
	}
	m := BuildModel(header, items, "jdoe")
	if len(m.Sections) != 1 {
		t.Fatalf("sections: got %d", len(m.Sections))
	}
	want := "12,592 (個人) / 18,888 (總計)"
	if got := m.Sections[0].Total.Display; got != want {
		t.Fatalf("display: got %q, want %q", got, want)
	}
}

func TestBuildModelChartMatchesSectionTotals(t *testing.T) {
	// The same category totals must be readable via chart and via sections.
	header := core.Header{ReportID: "R0015", Days: d("3"), RateUSD: d("30")}
	items := map[core.Category][]core.Item{
		core.CategoryTaxi:          {taxiItem(1, "630"), taxiItem(2, "200")},
		core.CategoryAccommodation: {lodgingItem(1, "1500", "0")},
		core.CategoryInternet:      {{Category: core.CategoryInternet, Sequence: 1, Date: core.NewDate(2026, 1, 4), Currency: "TWD", Rate: d("1"), Amount: d("300"), TWDAmount: d("300")}},
	}
	m := BuildModel(header, items, "jdoe")

	chartByName := make(map[string]decimal.Decimal)
	for _, p := range m.Chart {
		chartByName[p.Name] = p.Value
	}
	for _, sec := range m.Sections {
		catTotal := decimal.Zero
		for _, it := range sec.Items {
			catTotal = catTotal.Add(it.TotalTWD())
		}
		if !catTotal.Equal(sec.Total.Amount) {
			t.Fatalf("%s: section total %s != item sum %s", sec.ID, sec.Total.Amount, catTotal)
		}
		name := sec.Items[0].Category.String()
		if !chartByName[name].Equal(sec.Total.Amount) {
			t.Fatalf("%s: chart %s != section %s", name, chartByName[name], sec.Total.Amount)
		}
	}
}

func TestBuildModelEmptyReport(t *testing.T) {
	m := BuildModel(core.Header{ReportID: "R0016"}, nil, "jdoe")
	if len(m.Sections) != 0 || len(m.Chart) != 0 {
		t.Fatalf("expected empty sections and chart, got %d/%d", len(m.Sections), len(m.Chart))
	}
	if !m.Summary.TotalTWD.IsZero() || !m.Summary.AvgDayUSD.IsZero() {
		t.Fatalf("expected zero summary")
	}
}

func TestFormatGrouped(t *testing.T) {
	cases := []struct{ in, want string }{
		{"0", "0"},
		{"630", "630"},
		{"1000", "1,000"},
		{"18888", "18,888"},
		{"1234567", "1,234,567"},
		{"-4722", "-4,722"},
		{"1234.56", "1,234.56"},
	}
	for _, tc := range cases {
		if got := FormatGrouped(d(tc.in)); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFieldValue(t *testing.T) {
	it := core.Item{
		Category: core.CategoryFlight, Sequence: 2, Date: core.NewDate(2026, 1, 2),
		Currency: "USD", Rate: d("31.48"), Amount: d("150"), TWDAmount: d("4722"),
		Note:   "outbound",
		Flight: &core.FlightDetails{Code: "BR189", Departure: "TPE", Arrival: "KIX", DepTime: "09:20", ArrTime: "13:05"},
	}
	cases := []struct{ field, want string }{
		{FieldSeq, "2"},
		{FieldDate, "2026/01/02"},
		{FieldCurrency, "USD"},
		{FieldAmount, "150"},
		{FieldTWD, "4722"},
		{FieldFlightCode, "BR189"},
		{FieldArrTime, "13:05"},
		{FieldNote, "outbound"},
		{FieldNights, ""}, // lodging field on a flight item
	}
	for _, tc := range cases {
		if got := FieldValue(it, tc.field); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.field, got, tc.want)
		}
	}
}
