package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func taxi(twd string) core.Item {
	return core.Item{
		Category:  core.CategoryTaxi,
		Date:      core.NewDate(2026, 1, 10),
		Region:    "Taipei",
		Currency:  "TWD",
		Rate:      d("1"),
		Amount:    d(twd),
		TWDAmount: d(twd),
	}
}

func TestCreateReportMonotonicIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.CreateReport(ctx, "u-1", d("31.48"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := s.CreateReport(ctx, "u-1", d("31.48"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a != "R0001" || b != "R0002" {
		t.Fatalf("ids: %q %q", a, b)
	}
}

func TestAddItemAssignsSequence(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.CreateReport(ctx, "u-1", d("31.48"))

	for i := 0; i < 3; i++ {
		if err := s.AddItem(ctx, id, taxi("100")); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	rep, err := s.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	items := rep.Items[core.CategoryTaxi]
	if len(items) != 3 {
		t.Fatalf("items: %d", len(items))
	}
	for i, it := range items {
		if it.Sequence != i+1 {
			t.Fatalf("item %d: sequence %d", i, it.Sequence)
		}
	}
	if !rep.Header.CategoryTotals[core.CategoryTaxi].Equal(d("300")) {
		t.Fatalf("running total: %s", rep.Header.CategoryTotals[core.CategoryTaxi])
	}
}

func TestAddItemRejectsInvalid(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.CreateReport(ctx, "u-1", d("1"))

	bad := taxi("100")
	bad.Amount = d("-1")
	if err := s.AddItem(ctx, id, bad); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("got %v", err)
	}
	if err := s.AddItem(ctx, "R9999", taxi("100")); !errors.Is(err, store.ErrReportNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestDeleteItemRenumbers(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.CreateReport(ctx, "u-1", d("1"))

	for _, amt := range []string{"100", "200", "300"} {
		if err := s.AddItem(ctx, id, taxi(amt)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.DeleteItem(ctx, id, core.CategoryTaxi, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rep, _ := s.GetReport(ctx, id)
	items := rep.Items[core.CategoryTaxi]
	if len(items) != 2 {
		t.Fatalf("items: %d", len(items))
	}
	if items[0].Sequence != 1 || items[1].Sequence != 2 {
		t.Fatalf("sequences: %d %d", items[0].Sequence, items[1].Sequence)
	}
	if !items[1].TWDAmount.Equal(d("300")) {
		t.Fatalf("wrong item deleted: %s", items[1].TWDAmount)
	}
	if !rep.Header.CategoryTotals[core.CategoryTaxi].Equal(d("400")) {
		t.Fatalf("running total: %s", rep.Header.CategoryTotals[core.CategoryTaxi])
	}

	if err := s.DeleteItem(ctx, id, core.CategoryTaxi, 5); !errors.Is(err, store.ErrItemNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestGetReportIsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.CreateReport(ctx, "u-1", d("1"))
	if err := s.AddItem(ctx, id, taxi("100")); err != nil {
		t.Fatalf("add: %v", err)
	}

	rep, _ := s.GetReport(ctx, id)
	rep.Items[core.CategoryTaxi][0].TWDAmount = d("999")
	rep.Header.CategoryTotals[core.CategoryTaxi] = d("999")

	fresh, _ := s.GetReport(ctx, id)
	if !fresh.Items[core.CategoryTaxi][0].TWDAmount.Equal(d("100")) {
		t.Fatalf("store mutated through snapshot")
	}
	if !fresh.Header.CategoryTotals[core.CategoryTaxi].Equal(d("100")) {
		t.Fatalf("totals mutated through snapshot")
	}
}

func TestRateSource(t *testing.T) {
	s := New()
	date := core.NewDate(2026, 1, 1)
	s.SeedRate("USD", date, d("31.10"))

	rate, err := s.ExchangeRate(context.Background(), "USD", date)
	if err != nil || !rate.Equal(d("31.10")) {
		t.Fatalf("got %s, %v", rate, err)
	}
	if _, err := s.ExchangeRate(context.Background(), "JPY", date); !errors.Is(err, store.ErrNoRate) {
		t.Fatalf("got %v", err)
	}
}

func TestSearchers(t *testing.T) {
	s := New()
	s.SeedCities("Tokyo", "Taipei", "Osaka")
	s.SeedFlight("BR189", store.FlightInfo{Departure: "TPE", Arrival: "KIX", DepTime: "09:20", ArrTime: "13:05"})

	cities, err := s.SearchCity(context.Background(), "t")
	if err != nil {
		t.Fatalf("search city: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("cities: %v", cities)
	}

	info, err := s.SearchFlight(context.Background(), "br189", core.NewDate(2026, 1, 2))
	if err != nil || info.Departure != "TPE" {
		t.Fatalf("flight: %+v, %v", info, err)
	}
}

func TestIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.SignUp(ctx, "Jo Doe", "jo@example.com", "pw1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := s.SignUp(ctx, "Jo Doe", "jo@example.com", "pw1"); err == nil {
		t.Fatalf("duplicate signup must fail")
	}
	if _, err := s.SignIn(ctx, "jo@example.com", "wrong"); err == nil {
		t.Fatalf("wrong password must fail")
	}
	got, err := s.SignIn(ctx, "jo@example.com", "pw1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("signin: %+v, %v", got, err)
	}
	if err := s.ChangePassword(ctx, u.ID, "pw1", "pw2"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := s.SignIn(ctx, "jo@example.com", "pw2"); err != nil {
		t.Fatalf("signin after change: %v", err)
	}
	if err := s.ForgotPassword(ctx, "nobody@example.com"); err == nil {
		t.Fatalf("unknown account must fail")
	}
}
