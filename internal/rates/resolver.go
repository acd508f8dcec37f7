// Package rates decides which exchange rate applies to an expense line and
// guards rapid-fire lookups against stale results.
package rates

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

// Source says where a resolved rate came from.
type Source string

const (
	SourceBase     Source = "base"     // base currency, fixed 1
	SourceHeader   Source = "header"   // trip-level USD rate
	SourceLookup   Source = "lookup"   // (currency, date) lookup
	SourcePrevDay  Source = "prev-day" // first-flight previous-day lookup
	SourceFallback Source = "fallback" // lookup failed, rate 1
	SourceClient   Source = "client"   // rate confirmed by the client preview
)

// Request carries everything the policy needs for one expense line.
type Request struct {
	Currency   string
	Date       core.Date
	HeaderRate decimal.Decimal
	// FirstFlight marks the trip's first chronological flight; a first
	// outbound flight is settled before the trip starts, so its USD rate
	// comes from the day before the flight date rather than the header.
	FirstFlight bool
}

// Resolution is the policy's answer.
type Resolution struct {
	Rate       decimal.Decimal
	Source     Source
	LookupDate core.Date // set when a remote lookup was made
}

// Resolver applies the resolution policy over a rate source. At most one
// round-trip to the source happens per call.
type Resolver struct {
	source store.RateSource
}

func NewResolver(source store.RateSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve picks the applicable rate. On lookup failure it falls back to
// rate 1 and returns the lookup error alongside the fallback so the caller
// can proceed with a flagged conversion instead of being blocked.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if req.Currency == core.BaseCurrency {
		return Resolution{Rate: decimal.NewFromInt(1), Source: SourceBase}, nil
	}

	// The trip's first USD flight resolves against the previous calendar
	// day; the header rate is not meaningful before the trip starts.
	if req.FirstFlight && req.Currency == "USD" && !req.Date.IsZero() {
		prev := req.Date.PrevDay()
		rate, err := r.lookup(ctx, req.Currency, prev)
		if err == nil {
			return Resolution{Rate: rate, Source: SourcePrevDay, LookupDate: prev}, nil
		}
		slog.WarnContext(ctx, "Previous-day rate lookup failed",
			"currency", req.Currency,
			"date", prev.String(),
			"error", err)
		if req.HeaderRate.Sign() > 0 {
			return Resolution{Rate: req.HeaderRate, Source: SourceHeader}, nil
		}
		return Resolution{Rate: decimal.NewFromInt(1), Source: SourceFallback}, err
	}

	// The header rate is authoritative for USD across the whole trip.
	if req.Currency == "USD" && req.HeaderRate.Sign() > 0 {
		return Resolution{Rate: req.HeaderRate, Source: SourceHeader}, nil
	}

	rate, err := r.lookup(ctx, req.Currency, req.Date)
	if err != nil {
		slog.WarnContext(ctx, "Rate lookup failed, falling back to 1",
			"currency", req.Currency,
			"date", req.Date.String(),
			"error", err)
		return Resolution{Rate: decimal.NewFromInt(1), Source: SourceFallback}, err
	}
	return Resolution{Rate: rate, Source: SourceLookup, LookupDate: req.Date}, nil
}

func (r *Resolver) lookup(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	rate, err := r.source.ExchangeRate(ctx, currency, date)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, store.ErrNoRate
	}
	return rate, nil
}
