package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestItemValidate(t *testing.T) {
	good := Item{
		Category:  CategoryTaxi,
		Sequence:  1,
		Date:      NewDate(2026, 1, 10),
		Region:    "Tokyo",
		Currency:  "TWD",
		Rate:      decimal.NewFromInt(1),
		Amount:    decimal.NewFromInt(630),
		TWDAmount: decimal.NewFromInt(630),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Item)
		want error
	}{
		{"unknown category", func(it *Item) { it.Category = "Hotel" }, ErrInvalidCategory},
		{"zero date", func(it *Item) { it.Date = Date{} }, ErrInvalidDate},
		{"missing currency", func(it *Item) { it.Currency = " " }, ErrMissingCurrency},
		{"zero rate", func(it *Item) { it.Rate = decimal.Zero }, ErrInvalidRate},
		{"negative amount", func(it *Item) { it.Amount = decimal.NewFromInt(-1) }, ErrNegativeAmount},
	}
	for _, tc := range cases {
		it := good
		tc.mut(&it)
		if err := it.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestItemValidateAccommodation(t *testing.T) {
	it := Item{
		Category: CategoryAccommodation,
		Date:     NewDate(2026, 1, 10),
		Currency: "USD",
		Rate:     decimal.NewFromFloat(31.48),
	}
	if err := it.Validate(); err == nil {
		t.Fatalf("expected error for missing lodging details")
	}

	it.Lodging = &LodgingDetails{
		Nights:         2,
		AdvancePayers:  1,
		PersonalAmount: decimal.NewFromInt(100),
		AdvanceAmount:  decimal.NewFromInt(50),
	}
	if err := it.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	it.Lodging.AdvancePayers = 0
	if err := it.Validate(); !errors.Is(err, ErrPayersRequired) {
		t.Fatalf("got %v, want ErrPayersRequired", err)
	}
}

func TestItemTWDAttribution(t *testing.T) {
	taxi := Item{Category: CategoryTaxi, TWDAmount: decimal.NewFromInt(630)}
	if !taxi.TotalTWD().Equal(decimal.NewFromInt(630)) || !taxi.PersonalTWD().Equal(decimal.NewFromInt(630)) {
		t.Fatalf("taxi attribution: total %s personal %s", taxi.TotalTWD(), taxi.PersonalTWD())
	}

	lodging := Item{
		Category: CategoryAccommodation,
		Lodging: &LodgingDetails{
			TWDPersonal: decimal.NewFromInt(12592),
			TWDAdvance:  decimal.NewFromInt(6296),
			TWDTotal:    decimal.NewFromInt(18888),
		},
	}
	if !lodging.TotalTWD().Equal(decimal.NewFromInt(18888)) {
		t.Fatalf("lodging total: got %s", lodging.TotalTWD())
	}
	if !lodging.PersonalTWD().Equal(decimal.NewFromInt(12592)) {
		t.Fatalf("lodging personal: got %s", lodging.PersonalTWD())
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(cats))
	}
	if cats[0] != CategoryFlight || cats[1] != CategoryAccommodation || cats[8] != CategoryOthers {
		t.Fatalf("unexpected display order: %v", cats)
	}
	for _, c := range cats {
		if !c.IsValid() {
			t.Fatalf("%s should be valid", c)
		}
	}
	if Category("Hotel").IsValid() {
		t.Fatalf("unknown category should be invalid")
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"2026/01/02", "2026/01/02", true},
		{"2026-01-02", "2026/01/02", true},
		{" 2026/12/31 ", "2026/12/31", true},
		{"", "", false},
		{"02/01/2026", "", false},
		{"2026/13/01", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q: got %q (err=%v)", tc.in, got.String(), err)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestDatePrevDay(t *testing.T) {
	// First-of-month and first-of-year boundaries stay on the wall clock.
	cases := []struct{ in, want string }{
		{"2026/01/02", "2026/01/01"},
		{"2026/01/01", "2025/12/31"},
		{"2026/03/01", "2026/02/28"},
	}
	for _, tc := range cases {
		dte, err := ParseDate(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := dte.PrevDay().String(); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}
