package rates

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

// slowSource delays each answer so a newer Submit can overtake an in-flight
// lookup.
type slowSource struct {
	delay time.Duration
	rate  decimal.Decimal
}

func (s *slowSource) ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	time.Sleep(s.delay)
	return s.rate, nil
}

func TestPreviewerDebounce(t *testing.T) {
	src := &fakeSource{rates: map[string]decimal.Decimal{
		"JPY 2026/01/12": d("0.21"),
	}}
	p := NewPreviewer(NewResolver(src), 20*time.Millisecond)

	// Three rapid submits inside one quiet period: only the last resolves.
	p.Submit(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/10")})
	p.Submit(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/11")})
	last := p.Submit(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/12")})

	select {
	case res := <-p.Results():
		if res.Generation != last {
			t.Fatalf("got generation %d, want %d", res.Generation, last)
		}
		if !res.Resolution.Rate.Equal(d("0.21")) {
			t.Fatalf("rate: %s", res.Resolution.Rate)
		}
	case <-time.After(time.Second):
		t.Fatalf("no result delivered")
	}

	if len(src.lookups) != 1 || src.lookups[0] != "JPY 2026/01/12" {
		t.Fatalf("debounce should issue one lookup, got %v", src.lookups)
	}

	select {
	case res := <-p.Results():
		t.Fatalf("unexpected extra result for generation %d", res.Generation)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestPreviewerDiscardsSupersededInFlight(t *testing.T) {
	src := &slowSource{delay: 50 * time.Millisecond, rate: d("0.21")}
	p := NewPreviewer(NewResolver(src), 5*time.Millisecond)

	first := p.Submit(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/10")})
	// Let the first lookup start, then supersede it mid-flight.
	time.Sleep(20 * time.Millisecond)
	second := p.Submit(context.Background(), Request{Currency: "JPY", Date: mustDate(t, "2026/01/11")})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case res := <-p.Results():
			if res.Generation == first {
				t.Fatalf("superseded generation %d must not deliver", first)
			}
			if res.Generation == second {
				return
			}
		case <-deadline:
			t.Fatalf("no result for generation %d", second)
		}
	}
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	if !g.Register("session-a", 1) {
		t.Fatalf("first token must register")
	}
	if !g.Register("session-a", 3) {
		t.Fatalf("newer token must register")
	}
	if g.Register("session-a", 2) {
		t.Fatalf("older token must be rejected")
	}
	if !g.Stale("session-a", 2) {
		t.Fatalf("token 2 is superseded by 3")
	}
	if g.Stale("session-a", 3) {
		t.Fatalf("token 3 is current")
	}
	// Keys are independent.
	if !g.Register("session-b", 1) {
		t.Fatalf("other key starts fresh")
	}
}
