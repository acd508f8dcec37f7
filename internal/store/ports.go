// Package store defines the ports to the external report store and its
// collaborators. Adapters live in subpackages; core never sees wire formats.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrItemNotFound   = errors.New("item not found")
	ErrNoRate         = errors.New("no exchange rate available")
)

// ItemsByCategory groups a report's stored items by category.
type ItemsByCategory map[core.Category][]core.Item

// Report is a full fetch: the header plus every item collection.
type Report struct {
	Header core.Header
	Items  ItemsByCategory
}

// ReportStore is the single source of truth for reports and items. After any
// mutation callers re-fetch the full report; the store never returns partial
// updates.
type ReportStore interface {
	// CreateReport allocates the next monotonically-numbered report id for
	// the user.
	CreateReport(ctx context.Context, userID string, exchangeRate decimal.Decimal) (reportID string, err error)
	GetReport(ctx context.Context, reportID string) (Report, error)
	AddItem(ctx context.Context, reportID string, item core.Item) error
	// DeleteItem removes by per-category 1-based ordinal, not a global id.
	DeleteItem(ctx context.Context, reportID string, cat core.Category, sequence int) error
}

// TripInfoSetter updates the header's trip-level fields. Optional: stores
// that derive the period themselves do not implement it.
type TripInfoSetter interface {
	SetTripInfo(ctx context.Context, reportID string, days, rateUSD decimal.Decimal, startDate, endDate string) error
}

// RateSource looks up the exchange rate for (currency, date).
type RateSource interface {
	ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error)
}

// CitySearcher backs the region autocomplete.
type CitySearcher interface {
	SearchCity(ctx context.Context, query string) ([]string, error)
}

// FlightInfo is the autofill payload for a flight code + date.
type FlightInfo struct {
	Departure string
	Arrival   string
	DepTime   string
	ArrTime   string
}

// FlightSearcher backs the flight autofill.
type FlightSearcher interface {
	SearchFlight(ctx context.Context, code string, date core.Date) (FlightInfo, error)
}

// User is the identity collaborator's view of an account.
type User struct {
	ID    string
	Name  string
	Email string
}

// Identity is the external identity collaborator. Payloads are opaque to the
// core; errors surface as auth failures.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	SignUp(ctx context.Context, name, email, password string) (User, error)
	ForgotPassword(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}
