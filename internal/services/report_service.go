// Package services orchestrates report operations: rate resolution, derived
// amount computation, store writes, and sync notification.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/rates"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/report"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

// ErrFlightRequired rejects non-flight entries before the trip has a flight.
// The first flight anchors the trip period, so everything else waits for it.
var ErrFlightRequired = errors.New("a flight entry is required before other categories")

// SyncNotifier wakes the sync worker after a local mutation. Nil disables
// notification; the worker still drains on its own schedule.
type SyncNotifier interface {
	PublishSync(ctx context.Context, reportID string) error
}

// EntryInput is one expense line as entered, before derivation.
type EntryInput struct {
	Category core.Category
	Date     core.Date
	Region   string
	Note     string
	SubKind  string // Others only
	Currency string

	// Single-amount categories.
	Amount decimal.Decimal

	// Rate is the client-confirmed rate from the preview flow. Zero means
	// the service resolves one itself.
	Rate decimal.Decimal

	Flight  *core.FlightDetails
	Lodging *core.LodgingInput
}

// EntryResult reports what was stored and how its rate was obtained.
type EntryResult struct {
	Item       core.Item
	Resolution rates.Resolution
	// RateWarning is set when the rate fell back to 1; the item is stored
	// anyway and the user is told to verify the conversion.
	RateWarning string
}

type ReportService struct {
	store    store.ReportStore
	resolver *rates.Resolver
	notifier SyncNotifier
}

func NewReportService(st store.ReportStore, resolver *rates.Resolver, notifier SyncNotifier) *ReportService {
	return &ReportService{store: st, resolver: resolver, notifier: notifier}
}

// StartReport creates a fresh report for the user.
func (s *ReportService) StartReport(ctx context.Context, userID string, rateUSD decimal.Decimal) (string, error) {
	id, err := s.store.CreateReport(ctx, userID, rateUSD)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	slog.InfoContext(ctx, "Report started", "report_id", id, "user_id", userID)
	return id, nil
}

// Report returns the stored report as-is.
func (s *ReportService) Report(ctx context.Context, reportID string) (store.Report, error) {
	return s.store.GetReport(ctx, reportID)
}

// BuildModel fetches the report and builds the render model for it.
func (s *ReportService) BuildModel(ctx context.Context, reportID, user string) (report.Model, error) {
	rep, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return report.Model{}, fmt.Errorf("get report: %w", err)
	}
	return report.BuildModel(rep.Header, rep.Items, user), nil
}

// AddEntry resolves the rate, derives the stored amounts, and appends the
// item. Rate-lookup failure is not fatal: the entry stores at rate 1 with a
// warning attached.
func (s *ReportService) AddEntry(ctx context.Context, reportID string, in EntryInput) (EntryResult, error) {
	if !in.Category.IsValid() {
		return EntryResult{}, fmt.Errorf("%w: %q", core.ErrInvalidCategory, in.Category)
	}

	rep, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return EntryResult{}, fmt.Errorf("get report: %w", err)
	}

	hasFlight := len(rep.Items[core.CategoryFlight]) > 0
	if in.Category != core.CategoryFlight && !hasFlight {
		return EntryResult{}, ErrFlightRequired
	}

	res, warning, err := s.resolveRate(ctx, rep.Header, in, hasFlight)
	if err != nil {
		return EntryResult{}, err
	}

	item, err := buildItem(in, res.Rate)
	if err != nil {
		return EntryResult{}, err
	}
	if err := s.store.AddItem(ctx, reportID, item); err != nil {
		return EntryResult{}, fmt.Errorf("add item: %w", err)
	}
	s.notify(ctx, reportID)

	return EntryResult{Item: item, Resolution: res, RateWarning: warning}, nil
}

// DeleteEntry removes an item by its per-category sequence.
func (s *ReportService) DeleteEntry(ctx context.Context, reportID string, cat core.Category, sequence int) error {
	if !cat.IsValid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidCategory, cat)
	}
	if err := s.store.DeleteItem(ctx, reportID, cat, sequence); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.notify(ctx, reportID)
	return nil
}

func (s *ReportService) resolveRate(ctx context.Context, header core.Header, in EntryInput, hasFlight bool) (rates.Resolution, string, error) {
	if in.Rate.Sign() > 0 {
		return rates.Resolution{Rate: in.Rate, Source: rates.SourceClient}, "", nil
	}

	res, err := s.resolver.Resolve(ctx, rates.Request{
		Currency:    in.Currency,
		Date:        in.Date,
		HeaderRate:  header.RateUSD,
		FirstFlight: in.Category == core.CategoryFlight && !hasFlight,
	})
	if err != nil {
		// Fallback resolution: store at rate 1 and tell the user.
		return res, fmt.Sprintf("no rate found for %s on %s, stored at rate 1", in.Currency, in.Date), nil
	}
	return res, "", nil
}

func (s *ReportService) notify(ctx context.Context, reportID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishSync(ctx, reportID); err != nil {
		// The mutation is already stored; sync catches up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"report_id", reportID, "error", err)
	}
}

func buildItem(in EntryInput, rate decimal.Decimal) (core.Item, error) {
	item := core.Item{
		Category: in.Category,
		Date:     in.Date,
		Region:   in.Region,
		Note:     in.Note,
		Currency: in.Currency,
		Rate:     rate,
	}

	if in.Category == core.CategoryAccommodation {
		if in.Lodging == nil {
			return core.Item{}, fmt.Errorf("accommodation entry missing lodging fields")
		}
		details, err := core.ComputeLodging(*in.Lodging, rate)
		if err != nil {
			return core.Item{}, err
		}
		item.Lodging = &details
		item.Amount = details.Total
		item.TWDAmount = details.TWDTotal
		return item, nil
	}

	twd, err := core.ComputeSingle(in.Amount, rate)
	if err != nil {
		return core.Item{}, err
	}
	item.Amount = in.Amount
	item.TWDAmount = twd

	switch in.Category {
	case core.CategoryFlight:
		if in.Flight != nil {
			f := *in.Flight
			item.Flight = &f
		} else {
			item.Flight = &core.FlightDetails{}
		}
	case core.CategoryOthers:
		item.SubKind = in.SubKind
	}
	return item, nil
}
