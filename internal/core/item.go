package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the currency every summary figure is ultimately expressed in.
const BaseCurrency = "TWD"

var (
	ErrInvalidCategory  = errors.New("invalid category")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidRate      = errors.New("exchange rate must be positive")
	ErrInvalidNights    = errors.New("nights must be at least 1")
	ErrPayersRequired   = errors.New("advance payer count must be at least 1 when an advance amount is entered")
	ErrNegativePayers   = errors.New("advance payer count must not be negative")
	ErrMissingCurrency  = errors.New("missing currency")
	ErrInvalidSequence  = errors.New("sequence must be at least 1")
)

// FlightDetails carries the flight-only fields of an item.
type FlightDetails struct {
	Code      string
	Departure string
	Arrival   string
	DepTime   string
	ArrTime   string
}

// LodgingDetails carries the accommodation-only fields of an item, including
// every derived value computed at entry time.
type LodgingDetails struct {
	Nights          int
	AdvancePayers   int
	PersonalAmount  decimal.Decimal // entered currency
	AdvanceAmount   decimal.Decimal // entered currency
	Total           decimal.Decimal // personal + advance, entered currency
	TWDPersonal     decimal.Decimal
	TWDAdvance      decimal.Decimal
	TWDTotal        decimal.Decimal
	PerPersonPerDay decimal.Decimal
}

// Item is one entered expense line. Derived TWD fields are computed at write
// time and stored; report aggregation reads them back without recomputing.
type Item struct {
	Category Category
	Sequence int // per-category 1-based ordinal assigned by the store
	Date     Date
	Region   string // free-text region or description
	Note     string
	Currency string
	Rate     decimal.Decimal

	// Single-amount categories. For Accommodation these mirror the lodging
	// totals so aggregation can treat every item uniformly.
	Amount    decimal.Decimal
	TWDAmount decimal.Decimal

	// Others only: free-text sub-classification.
	SubKind string

	Flight  *FlightDetails
	Lodging *LodgingDetails
}

// Validate checks the invariants that hold for every stored item.
func (it Item) Validate() error {
	if !it.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, it.Category)
	}
	if err := it.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(it.Currency) == "" {
		return ErrMissingCurrency
	}
	if it.Rate.Sign() <= 0 {
		return ErrInvalidRate
	}
	if it.Amount.Sign() < 0 || it.TWDAmount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if it.Category == CategoryAccommodation {
		if it.Lodging == nil {
			return errors.New("accommodation item missing lodging details")
		}
		return it.Lodging.Validate()
	}
	return nil
}

// Validate checks the lodging split invariants.
func (l LodgingDetails) Validate() error {
	if l.Nights < 1 {
		return ErrInvalidNights
	}
	if l.AdvancePayers < 0 {
		return ErrNegativePayers
	}
	if l.PersonalAmount.Sign() < 0 || l.AdvanceAmount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if l.AdvanceAmount.Sign() > 0 && l.AdvancePayers < 1 {
		return ErrPayersRequired
	}
	return nil
}

// TotalTWD returns the overall TWD value of the item: the full lodging total
// for accommodation, the converted amount for everything else.
func (it Item) TotalTWD() decimal.Decimal {
	if it.Category == CategoryAccommodation && it.Lodging != nil {
		return it.Lodging.TWDTotal
	}
	return it.TWDAmount
}

// PersonalTWD returns the portion attributable to the traveler personally.
// Only accommodation carries an advance split; every other category is
// wholly personal.
func (it Item) PersonalTWD() decimal.Decimal {
	if it.Category == CategoryAccommodation && it.Lodging != nil {
		return it.Lodging.TWDPersonal
	}
	return it.TWDAmount
}

// Header is the report-level record kept by the store, one per report.
// CategoryTotals are the store's running totals; they are display hints only
// and never the arithmetic source of truth (totals are recomputed from items
// at model-build time).
type Header struct {
	ReportID  string
	UserID    string
	Days      decimal.Decimal // trip day count, may be fractional (half days)
	RateUSD   decimal.Decimal // trip-level USD→TWD rate
	StartDate string
	EndDate   string

	CategoryTotals map[Category]decimal.Decimal
}

// Period returns the date-range label shown on the summary block.
func (h Header) Period() string {
	return h.StartDate + " - " + h.EndDate
}
