package rates

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

// fakeSource records lookups and answers from a fixed table keyed by
// "currency date".
type fakeSource struct {
	rates   map[string]decimal.Decimal
	err     error
	lookups []string
}

func (f *fakeSource) ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	key := currency + " " + date.String()
	f.lookups = append(f.lookups, key)
	if f.err != nil {
		return decimal.Zero, f.err
	}
	rate, ok := f.rates[key]
	if !ok {
		return decimal.Zero, store.ErrNoRate
	}
	return rate, nil
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	dte, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return dte
}

func TestResolveBaseCurrency(t *testing.T) {
	src := &fakeSource{}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{Currency: "TWD", Date: mustDate(t, "2026/01/02")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rate.Equal(d("1")) || res.Source != SourceBase {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
	if len(src.lookups) != 0 {
		t.Fatalf("base currency must not hit the source: %v", src.lookups)
	}
}

func TestResolveHeaderRate(t *testing.T) {
	src := &fakeSource{}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{
		Currency:   "USD",
		Date:       mustDate(t, "2026/01/05"),
		HeaderRate: d("31.48"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rate.Equal(d("31.48")) || res.Source != SourceHeader {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
	if len(src.lookups) != 0 {
		t.Fatalf("header rate must not hit the source: %v", src.lookups)
	}
}

func TestResolveFirstFlightUsesPreviousDay(t *testing.T) {
	// First flight on 2026/01/02 resolves against 2026/01/01.
	src := &fakeSource{rates: map[string]decimal.Decimal{
		"USD 2026/01/01": d("31.10"),
	}}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{
		Currency:    "USD",
		Date:        mustDate(t, "2026/01/02"),
		HeaderRate:  d("31.48"),
		FirstFlight: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rate.Equal(d("31.10")) || res.Source != SourcePrevDay {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
	if res.LookupDate.String() != "2026/01/01" {
		t.Fatalf("lookup date: %s", res.LookupDate)
	}
	if len(src.lookups) != 1 || src.lookups[0] != "USD 2026/01/01" {
		t.Fatalf("lookups: %v", src.lookups)
	}
}

func TestResolveFirstFlightFallsBackToHeader(t *testing.T) {
	src := &fakeSource{err: errors.New("rate service down")}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{
		Currency:    "USD",
		Date:        mustDate(t, "2026/01/02"),
		HeaderRate:  d("31.48"),
		FirstFlight: true,
	})
	if err != nil {
		t.Fatalf("header fallback should succeed, got %v", err)
	}
	if !res.Rate.Equal(d("31.48")) || res.Source != SourceHeader {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
}

func TestResolveLookupByDate(t *testing.T) {
	src := &fakeSource{rates: map[string]decimal.Decimal{
		"JPY 2026/01/12": d("0.21"),
	}}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/12")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Rate.Equal(d("0.21")) || res.Source != SourceLookup {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
}

func TestResolveLookupFailureFallsBackToOne(t *testing.T) {
	lookupErr := errors.New("rate service down")
	src := &fakeSource{err: lookupErr}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/12")})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("raw error must surface, got %v", err)
	}
	if !res.Rate.Equal(d("1")) || res.Source != SourceFallback {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
}

func TestResolveUnusableRateIsFallback(t *testing.T) {
	src := &fakeSource{rates: map[string]decimal.Decimal{
		"JPY 2026/01/12": decimal.Zero,
	}}
	r := NewResolver(src)

	res, err := r.Resolve(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/12")})
	if !errors.Is(err, store.ErrNoRate) {
		t.Fatalf("got %v, want ErrNoRate", err)
	}
	if !res.Rate.Equal(d("1")) || res.Source != SourceFallback {
		t.Fatalf("got %s from %s", res.Rate, res.Source)
	}
}
