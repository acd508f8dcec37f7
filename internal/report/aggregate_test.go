package report

import (
	"reflect"
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

func taxiItem(seq int, twd string) core.Item {
	return core.Item{
		Category:  core.CategoryTaxi,
		Sequence:  seq,
		Date:      core.NewDate(2026, 1, 10),
		Region:    "Taipei",
		Currency:  "TWD",
		Rate:      d("1"),
		Amount:    d(twd),
		TWDAmount: d(twd),
	}
}

func lodgingItem(seq int, twdPersonal, twdAdvance string) core.Item {
	p, a := d(twdPersonal), d(twdAdvance)
	return core.Item{
		Category: core.CategoryAccommodation,
		Sequence: seq,
		Date:     core.NewDate(2026, 1, 11),
		Region:   "Osaka",
		Currency: "TWD",
		Rate:     d("1"),
		Lodging: &core.LodgingDetails{
			Nights:      2,
			TWDPersonal: p,
			TWDAdvance:  a,
			TWDTotal:    p.Add(a),
		},
	}
}

func TestAggregateRecomputesFromItems(t *testing.T) {
	// Header carries stale cached totals; aggregation must ignore them.
	header := core.Header{
		Days:    d("4.5"),
		RateUSD: d("31.48"),
		CategoryTotals: map[core.Category]decimal.Decimal{
			core.CategoryTaxi: d("999999"),
		},
	}
	items := map[core.Category][]core.Item{
		core.CategoryTaxi:          {taxiItem(1, "630"), taxiItem(2, "370")},
		core.CategoryAccommodation: {lodgingItem(1, "12592", "6296")},
	}

	got := Aggregate(header, items)

	if !got.ByCategory[core.CategoryTaxi].Equal(d("1000")) {
		t.Fatalf("taxi total: got %s, want 1000", got.ByCategory[core.CategoryTaxi])
	}
	if !got.ByCategory[core.CategoryAccommodation].Equal(d("18888")) {
		t.Fatalf("accommodation total: got %s", got.ByCategory[core.CategoryAccommodation])
	}
	if !got.OverallTWD.Equal(d("19888")) {
		t.Fatalf("overall: got %s, want 19888", got.OverallTWD)
	}
	// Personal = taxi full + lodging personal only.
	if !got.PersonalTWD.Equal(d("13592")) {
		t.Fatalf("personal: got %s, want 13592", got.PersonalTWD)
	}
}

func TestAggregateAverages(t *testing.T) {
	// days=4.5, overall=28962 → avg/day 6436 whole TWD
	header := core.Header{Days: d("4.5"), RateUSD: d("31.48")}
	items := map[core.Category][]core.Item{
		core.CategoryTaxi: {taxiItem(1, "28962")},
	}
	got := Aggregate(header, items)
	if !got.AvgDayTWD.Equal(d("6436")) {
		t.Fatalf("avg/day TWD: got %s, want 6436", got.AvgDayTWD)
	}
	wantUSD := d("28962").Div(d("31.48")).Round(2)
	if !got.OverallUSD.Equal(wantUSD) {
		t.Fatalf("overall USD: got %s, want %s", got.OverallUSD, wantUSD)
	}
	if !got.AvgDayUSD.Equal(wantUSD.Div(d("4.5")).Round(2)) {
		t.Fatalf("avg/day USD: got %s", got.AvgDayUSD)
	}
}

func TestAggregateZeroGuards(t *testing.T) {
	items := map[core.Category][]core.Item{
		core.CategoryTaxi: {taxiItem(1, "630")},
	}

	// days <= 0 and rate <= 0 yield zeros, never a division error.
	got := Aggregate(core.Header{}, items)
	if !got.AvgDayTWD.IsZero() || !got.OverallUSD.IsZero() || !got.AvgDayUSD.IsZero() {
		t.Fatalf("expected zero averages, got %s / %s / %s", got.AvgDayTWD, got.OverallUSD, got.AvgDayUSD)
	}
	if !got.OverallTWD.Equal(d("630")) {
		t.Fatalf("overall: got %s", got.OverallTWD)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	header := core.Header{Days: d("3"), RateUSD: d("30")}
	items := map[core.Category][]core.Item{
		core.CategoryTaxi:          {taxiItem(1, "630")},
		core.CategoryAccommodation: {lodgingItem(1, "1000", "500")},
		core.CategoryGift:          {{Category: core.CategoryGift, Sequence: 1, Date: core.NewDate(2026, 1, 12), Currency: "TWD", Rate: d("1"), Amount: d("200"), TWDAmount: d("200")}},
	}
	a := Aggregate(header, items)
	b := Aggregate(header, items)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregation not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestAggregateEmptyReport(t *testing.T) {
	got := Aggregate(core.Header{Days: d("5"), RateUSD: d("31.48")}, nil)
	if !got.OverallTWD.IsZero() || !got.PersonalTWD.IsZero() {
		t.Fatalf("expected zero totals, got %s / %s", got.OverallTWD, got.PersonalTWD)
	}
	for cat, total := range got.ByCategory {
		if !total.IsZero() {
			t.Fatalf("%s: expected zero, got %s", cat, total)
		}
	}
}
