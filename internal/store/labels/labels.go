// Package labels translates between typed records and the store's native
// label-keyed wire format. The remote schema uses free-form field-label
// strings as keys; that vocabulary stays inside this package and the
// adapters that speak it, never inside computation code.
package labels

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

// Common field labels.
const (
	labelSeq      = "次序"
	labelDate     = "日期"
	labelCurrency = "幣別"
	labelRate     = "匯率"
	labelNote     = "備註"
	labelRegion   = "地區"
	labelDesc     = "說明"
	labelAmount   = "金額"
	labelTWD      = "TWD金額"
	labelSubKind  = "分類"
)

// Flight field labels.
const (
	labelFlightCode = "航班代號"
	labelDeparture  = "出發地"
	labelArrival    = "抵達地"
	labelDepTime    = "出發時間"
	labelArrTime    = "抵達時間"
)

// Accommodation field labels.
const (
	labelNights       = "天數"
	labelPersonal     = "個人金額"
	labelTWDPersonal  = "TWD個人金額"
	labelAdvance      = "代墊金額"
	labelTWDAdvance   = "TWD代墊金額"
	labelTotal        = "總體金額"
	labelTWDTotal     = "TWD總體金額"
	labelPayers       = "代墊人數"
	labelPerPersonDay = "每人每天金額"
)

// Header field labels.
const (
	labelDays      = "商旅天數"
	labelRateUSD   = "USD匯率"
	labelStartDate = "商旅起始日"
	labelEndDate   = "商旅結束日"
	labelUserID    = "使用者"
)

// headerTotalLabels maps each category to its running-total label on the
// report header.
var headerTotalLabels = map[core.Category]string{
	core.CategoryFlight:        "機票費總額",
	core.CategoryAccommodation: "總體住宿費總額",
	core.CategoryTaxi:          "計程車費總額",
	core.CategoryInternet:      "網路費總額",
	core.CategorySocial:        "交際費總額",
	core.CategoryGift:          "禮品費總額",
	core.CategoryHandlingFee:   "手續費總額",
	core.CategoryPerDiem:       "日支費總額",
	core.CategoryOthers:        "其他費總額",
}

// The header also tracks the personal share of lodging separately.
const labelPersonalLodgingTotal = "個人住宿費總額"

// PersonalLodgingTotalLabel is the header label for the personal share of
// lodging, kept apart from the per-category totals.
const PersonalLodgingTotalLabel = labelPersonalLodgingTotal

// HeaderTotalLabel returns the header label carrying a category's running
// total.
func HeaderTotalLabel(cat core.Category) string {
	return headerTotalLabels[cat]
}

// wireCategories maps categories to the store's item-group keys. The store
// spells handling fee "HandingFee"; the misspelling is part of its schema.
var wireCategories = map[core.Category]string{
	core.CategoryFlight:        "Flight",
	core.CategoryAccommodation: "Accommodation",
	core.CategoryTaxi:          "Taxi",
	core.CategoryInternet:      "Internet",
	core.CategorySocial:        "Social",
	core.CategoryGift:          "Gift",
	core.CategoryHandlingFee:   "HandingFee",
	core.CategoryPerDiem:       "PerDiem",
	core.CategoryOthers:        "Others",
}

// WireCategory returns the store's key for a category.
func WireCategory(cat core.Category) string {
	if k, ok := wireCategories[cat]; ok {
		return k
	}
	return string(cat)
}

// CategoryFromWire resolves a store key back to a category.
func CategoryFromWire(key string) (core.Category, bool) {
	for cat, k := range wireCategories {
		if k == key {
			return cat, true
		}
	}
	return "", false
}

// ItemToLabels renders an item in the store's label-keyed form. Numbers go
// out as floats because the store's scripting runtime only knows doubles.
func ItemToLabels(it core.Item) map[string]any {
	m := map[string]any{
		labelDate:     it.Date.String(),
		labelCurrency: it.Currency,
		labelRate:     it.Rate.InexactFloat64(),
		labelNote:     it.Note,
	}
	if it.Sequence > 0 {
		m[labelSeq] = it.Sequence
	}

	switch it.Category {
	case core.CategoryFlight:
		m[labelAmount] = it.Amount.InexactFloat64()
		m[labelTWD] = it.TWDAmount.InexactFloat64()
		if f := it.Flight; f != nil {
			m[labelFlightCode] = f.Code
			m[labelDeparture] = f.Departure
			m[labelArrival] = f.Arrival
			m[labelDepTime] = f.DepTime
			m[labelArrTime] = f.ArrTime
		}
	case core.CategoryAccommodation:
		m[labelRegion] = it.Region
		if l := it.Lodging; l != nil {
			m[labelNights] = l.Nights
			m[labelPersonal] = l.PersonalAmount.InexactFloat64()
			m[labelTWDPersonal] = l.TWDPersonal.InexactFloat64()
			m[labelAdvance] = l.AdvanceAmount.InexactFloat64()
			m[labelTWDAdvance] = l.TWDAdvance.InexactFloat64()
			m[labelTotal] = l.Total.InexactFloat64()
			m[labelTWDTotal] = l.TWDTotal.InexactFloat64()
			m[labelPayers] = l.AdvancePayers
			m[labelPerPersonDay] = l.PerPersonPerDay.InexactFloat64()
		}
	case core.CategoryTaxi:
		m[labelRegion] = it.Region
		m[labelAmount] = it.Amount.InexactFloat64()
		m[labelTWD] = it.TWDAmount.InexactFloat64()
	case core.CategoryOthers:
		m[labelDesc] = it.Region
		m[labelSubKind] = it.SubKind
		m[labelAmount] = it.Amount.InexactFloat64()
		m[labelTWD] = it.TWDAmount.InexactFloat64()
	default:
		m[labelDesc] = it.Region
		m[labelAmount] = it.Amount.InexactFloat64()
		m[labelTWD] = it.TWDAmount.InexactFloat64()
	}
	return m
}

// ItemFromLabels parses a store record back into a typed item. Unknown or
// missing labels parse as zero values; malformed dates are an error because
// nothing downstream can work without an entry date.
func ItemFromLabels(cat core.Category, m map[string]any) (core.Item, error) {
	date, err := core.ParseDate(str(m[labelDate]))
	if err != nil {
		return core.Item{}, fmt.Errorf("item date %q: %w", str(m[labelDate]), err)
	}

	it := core.Item{
		Category: cat,
		Sequence: integer(m[labelSeq]),
		Date:     date,
		Currency: str(m[labelCurrency]),
		Rate:     dec(m[labelRate]),
		Note:     str(m[labelNote]),
	}

	switch cat {
	case core.CategoryFlight:
		it.Amount = dec(m[labelAmount])
		it.TWDAmount = dec(m[labelTWD])
		it.Flight = &core.FlightDetails{
			Code:      str(m[labelFlightCode]),
			Departure: str(m[labelDeparture]),
			Arrival:   str(m[labelArrival]),
			DepTime:   str(m[labelDepTime]),
			ArrTime:   str(m[labelArrTime]),
		}
	case core.CategoryAccommodation:
		it.Region = str(m[labelRegion])
		it.Lodging = &core.LodgingDetails{
			Nights:          integer(m[labelNights]),
			PersonalAmount:  dec(m[labelPersonal]),
			TWDPersonal:     dec(m[labelTWDPersonal]),
			AdvanceAmount:   dec(m[labelAdvance]),
			TWDAdvance:      dec(m[labelTWDAdvance]),
			Total:           dec(m[labelTotal]),
			TWDTotal:        dec(m[labelTWDTotal]),
			AdvancePayers:   integer(m[labelPayers]),
			PerPersonPerDay: dec(m[labelPerPersonDay]),
		}
		it.Amount = it.Lodging.Total
		it.TWDAmount = it.Lodging.TWDTotal
	case core.CategoryTaxi:
		it.Region = str(m[labelRegion])
		it.Amount = dec(m[labelAmount])
		it.TWDAmount = dec(m[labelTWD])
	case core.CategoryOthers:
		it.Region = str(m[labelDesc])
		it.SubKind = str(m[labelSubKind])
		it.Amount = dec(m[labelAmount])
		it.TWDAmount = dec(m[labelTWD])
	default:
		it.Region = str(m[labelDesc])
		it.Amount = dec(m[labelAmount])
		it.TWDAmount = dec(m[labelTWD])
	}
	return it, nil
}

// HeaderFromLabels parses a report header record.
func HeaderFromLabels(reportID string, m map[string]any) core.Header {
	h := core.Header{
		ReportID:       reportID,
		UserID:         str(m[labelUserID]),
		Days:           dec(m[labelDays]),
		RateUSD:        dec(m[labelRateUSD]),
		StartDate:      str(m[labelStartDate]),
		EndDate:        str(m[labelEndDate]),
		CategoryTotals: make(map[core.Category]decimal.Decimal, len(headerTotalLabels)),
	}
	for cat, label := range headerTotalLabels {
		h.CategoryTotals[cat] = dec(m[label])
	}
	return h
}

// HeaderToLabels renders a header record, including the cached category
// totals the store keeps for display.
func HeaderToLabels(h core.Header, personalLodging decimal.Decimal) map[string]any {
	m := map[string]any{
		labelUserID:    h.UserID,
		labelDays:      h.Days.InexactFloat64(),
		labelRateUSD:   h.RateUSD.InexactFloat64(),
		labelStartDate: h.StartDate,
		labelEndDate:   h.EndDate,
	}
	for cat, label := range headerTotalLabels {
		m[label] = h.CategoryTotals[cat].InexactFloat64()
	}
	m[labelPersonalLodgingTotal] = personalLodging.InexactFloat64()
	return m
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func dec(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		if n == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func integer(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		return int(dec(n).IntPart())
	default:
		return 0
	}
}
