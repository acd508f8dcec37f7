package labels

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestWireCategory(t *testing.T) {
	// The store's schema spells handling fee without the "l".
	if got := WireCategory(core.CategoryHandlingFee); got != "HandingFee" {
		t.Fatalf("got %q", got)
	}
	cat, ok := CategoryFromWire("HandingFee")
	if !ok || cat != core.CategoryHandlingFee {
		t.Fatalf("got %q ok=%v", cat, ok)
	}
	if _, ok := CategoryFromWire("Hotel"); ok {
		t.Fatalf("unknown wire key should not resolve")
	}
	for _, cat := range core.Categories() {
		back, ok := CategoryFromWire(WireCategory(cat))
		if !ok || back != cat {
			t.Fatalf("%s: round trip gave %q ok=%v", cat, back, ok)
		}
	}
}

func TestFlightItemRoundTrip(t *testing.T) {
	in := core.Item{
		Category: core.CategoryFlight,
		Sequence: 1,
		Date:     core.NewDate(2026, 1, 2),
		Currency: "USD",
		Rate:     d("31.48"),
		Amount:   d("150"),
		TWDAmount: d("4722"),
		Note:     "outbound",
		Flight: &core.FlightDetails{
			Code: "BR189", Departure: "TPE", Arrival: "KIX",
			DepTime: "09:20", ArrTime: "13:05",
		},
	}

	got, err := ItemFromLabels(core.CategoryFlight, ItemToLabels(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date.String() != "2026/01/02" || got.Currency != "USD" || got.Sequence != 1 {
		t.Fatalf("common fields: %+v", got)
	}
	if !got.Amount.Equal(in.Amount) || !got.TWDAmount.Equal(in.TWDAmount) || !got.Rate.Equal(in.Rate) {
		t.Fatalf("amounts: %s %s %s", got.Amount, got.TWDAmount, got.Rate)
	}
	if got.Flight == nil || *got.Flight != *in.Flight {
		t.Fatalf("flight details: %+v", got.Flight)
	}
}

func TestLodgingItemRoundTrip(t *testing.T) {
	in := core.Item{
		Category: core.CategoryAccommodation,
		Sequence: 3,
		Date:     core.NewDate(2026, 1, 11),
		Region:   "Osaka",
		Currency: "USD",
		Rate:     d("31.48"),
		Lodging: &core.LodgingDetails{
			Nights:          2,
			AdvancePayers:   1,
			PersonalAmount:  d("400"),
			AdvanceAmount:   d("200"),
			Total:           d("600"),
			TWDPersonal:     d("12592"),
			TWDAdvance:      d("6296"),
			TWDTotal:        d("18888"),
			PerPersonPerDay: d("150"),
		},
	}
	in.Amount = in.Lodging.Total
	in.TWDAmount = in.Lodging.TWDTotal

	got, err := ItemFromLabels(core.CategoryAccommodation, ItemToLabels(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := got.Lodging
	if l == nil {
		t.Fatalf("missing lodging details")
	}
	if l.Nights != 2 || l.AdvancePayers != 1 {
		t.Fatalf("counts: %+v", l)
	}
	if !l.TWDTotal.Equal(d("18888")) || !l.TWDPersonal.Equal(d("12592")) {
		t.Fatalf("twd split: %s / %s", l.TWDPersonal, l.TWDTotal)
	}
	// The uniform aggregation fields mirror the lodging totals.
	if !got.TWDAmount.Equal(d("18888")) || !got.Amount.Equal(d("600")) {
		t.Fatalf("mirrored amounts: %s / %s", got.Amount, got.TWDAmount)
	}
}

func TestGenericItemRoundTrip(t *testing.T) {
	for _, cat := range []core.Category{core.CategoryTaxi, core.CategoryInternet, core.CategorySocial, core.CategoryGift, core.CategoryHandlingFee, core.CategoryPerDiem, core.CategoryOthers} {
		in := core.Item{
			Category: cat,
			Sequence: 2,
			Date:     core.NewDate(2026, 1, 12),
			Region:   "Kyoto",
			SubKind:  "laundry",
			Currency: "JPY",
			Rate:     d("0.21"),
			Amount:   d("3000"),
			TWDAmount: d("630"),
			Note:     "receipt 42",
		}
		got, err := ItemFromLabels(cat, ItemToLabels(in))
		if err != nil {
			t.Fatalf("%s: unexpected error %v", cat, err)
		}
		if got.Region != "Kyoto" || got.Note != "receipt 42" {
			t.Fatalf("%s: text fields %+v", cat, got)
		}
		if !got.TWDAmount.Equal(d("630")) || !got.Amount.Equal(d("3000")) {
			t.Fatalf("%s: amounts %s / %s", cat, got.Amount, got.TWDAmount)
		}
		if cat == core.CategoryOthers && got.SubKind != "laundry" {
			t.Fatalf("others sub-classification lost: %+v", got)
		}
	}
}

func TestItemFromLabelsBadDate(t *testing.T) {
	if _, err := ItemFromLabels(core.CategoryTaxi, map[string]any{"日期": "not a date"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := core.Header{
		ReportID:  "R0012",
		UserID:    "u-7",
		Days:      d("4.5"),
		RateUSD:   d("31.48"),
		StartDate: "2026/01/10",
		EndDate:   "2026/01/14",
		CategoryTotals: map[core.Category]decimal.Decimal{
			core.CategoryFlight:        d("4722"),
			core.CategoryAccommodation: d("18888"),
			core.CategoryTaxi:          d("630"),
		},
	}

	got := HeaderFromLabels("R0012", HeaderToLabels(h, d("12592")))
	if got.ReportID != "R0012" || got.UserID != "u-7" {
		t.Fatalf("identity fields: %+v", got)
	}
	if !got.Days.Equal(d("4.5")) || !got.RateUSD.Equal(d("31.48")) {
		t.Fatalf("numeric fields: %s / %s", got.Days, got.RateUSD)
	}
	if got.StartDate != "2026/01/10" || got.EndDate != "2026/01/14" {
		t.Fatalf("dates: %q %q", got.StartDate, got.EndDate)
	}
	if !got.CategoryTotals[core.CategoryAccommodation].Equal(d("18888")) {
		t.Fatalf("cached totals: %+v", got.CategoryTotals)
	}
	// Absent categories parse as zero, not missing.
	if !got.CategoryTotals[core.CategoryGift].IsZero() {
		t.Fatalf("gift total should be zero")
	}
}
