// Package core holds the expense domain: categories, item records, and the
// per-category computation rules applied at entry time.
package core

import "github.com/shopspring/decimal"

// RoundTWD rounds a converted amount to whole TWD, half away from zero,
// matching the rounding the store applies to every stored TWD field.
func RoundTWD(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// ConvertTWD converts an entered amount to whole TWD at the resolved rate.
// Invariant: convertedAmount = round(rawAmount * rate).
func ConvertTWD(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundTWD(amount.Mul(rate))
}

// ComputeSingle derives the stored TWD amount for a single-amount category
// (every category except Accommodation).
func ComputeSingle(amount, rate decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() < 0 {
		return decimal.Zero, ErrNegativeAmount
	}
	if rate.Sign() <= 0 {
		return decimal.Zero, ErrInvalidRate
	}
	return ConvertTWD(amount, rate), nil
}

// LodgingInput is the raw accommodation entry before derivation.
type LodgingInput struct {
	PersonalAmount decimal.Decimal
	AdvanceAmount  decimal.Decimal
	Nights         int
	AdvancePayers  int
}

// ComputeLodging derives every stored accommodation field from the raw entry
// and the resolved rate:
//
//	total           = personal + advance
//	perPersonPerDay = total / nights / (payers + 1), 2 decimals
//	twdPersonal     = round(personal * rate)
//	twdAdvance      = round(advance * rate)
//	twdTotal        = twdPersonal + twdAdvance
//
// Note twdTotal sums the two already-rounded parts rather than converting the
// total directly, so the stored split always adds up exactly.
func ComputeLodging(in LodgingInput, rate decimal.Decimal) (LodgingDetails, error) {
	if in.PersonalAmount.Sign() < 0 || in.AdvanceAmount.Sign() < 0 {
		return LodgingDetails{}, ErrNegativeAmount
	}
	if in.Nights < 1 {
		return LodgingDetails{}, ErrInvalidNights
	}
	if in.AdvancePayers < 0 {
		return LodgingDetails{}, ErrNegativePayers
	}
	if in.AdvanceAmount.Sign() > 0 && in.AdvancePayers < 1 {
		return LodgingDetails{}, ErrPayersRequired
	}
	if rate.Sign() <= 0 {
		return LodgingDetails{}, ErrInvalidRate
	}

	total := in.PersonalAmount.Add(in.AdvanceAmount)
	perPerson := total.
		Div(decimal.NewFromInt(int64(in.Nights))).
		Div(decimal.NewFromInt(int64(in.AdvancePayers + 1))).
		Round(2)

	twdPersonal := ConvertTWD(in.PersonalAmount, rate)
	twdAdvance := ConvertTWD(in.AdvanceAmount, rate)

	return LodgingDetails{
		Nights:          in.Nights,
		AdvancePayers:   in.AdvancePayers,
		PersonalAmount:  in.PersonalAmount,
		AdvanceAmount:   in.AdvanceAmount,
		Total:           total,
		TWDPersonal:     twdPersonal,
		TWDAdvance:      twdAdvance,
		TWDTotal:        twdPersonal.Add(twdAdvance),
		PerPersonPerDay: perPerson,
	}, nil
}
