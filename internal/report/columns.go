package report

import (
	"strconv"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
)

// Field identifiers shared between column schemas and FieldValue. Sinks key
// on these, never on store labels.
const (
	FieldSeq        = "seq"
	FieldDate       = "date"
	FieldRegion     = "region"
	FieldCurrency   = "currency"
	FieldAmount     = "amount"
	FieldRate       = "rate"
	FieldTWD        = "twd"
	FieldNote       = "note"
	FieldSubKind    = "sub_kind"
	FieldFlightCode = "flight_code"
	FieldDeparture  = "departure"
	FieldArrival    = "arrival"
	FieldDepTime    = "dep_time"
	FieldArrTime    = "arr_time"
	FieldNights     = "nights"
	FieldPersonal   = "personal"
	FieldTWDPers    = "twd_personal"
	FieldAdvance    = "advance"
	FieldTWDAdv     = "twd_advance"
	FieldTWDTotal   = "twd_total"
	FieldPerPersonDay = "per_person_day"
	FieldPayers       = "payers"
)

func sectionColumns(cat core.Category) []Column {
	switch cat {
	case core.CategoryFlight:
		return []Column{
			{Label: "日期", Field: FieldDate, Kind: KindDate, Width: 12},
			{Label: "航班", Field: FieldFlightCode, Kind: KindText, Width: 10},
			{Label: "出發", Field: FieldDeparture, Kind: KindText, Width: 10},
			{Label: "抵達", Field: FieldArrival, Kind: KindText, Width: 10},
			{Label: "出發時間", Field: FieldDepTime, Kind: KindText, Width: 8},
			{Label: "抵達時間", Field: FieldArrTime, Kind: KindText, Width: 8},
			{Label: "幣別", Field: FieldCurrency, Kind: KindText, Width: 8},
			{Label: "金額", Field: FieldAmount, Kind: KindNumber, Width: 10},
			{Label: "匯率", Field: FieldRate, Kind: KindNumber, Width: 8},
			{Label: "TWD", Field: FieldTWD, Kind: KindCurrency, Width: 10},
		}
	case core.CategoryAccommodation:
		return []Column{
			{Label: "日期", Field: FieldDate, Kind: KindDate, Width: 12},
			{Label: "地區", Field: FieldRegion, Kind: KindText, Width: 12},
			{Label: "天數", Field: FieldNights, Kind: KindNumber, Width: 6},
			{Label: "幣別", Field: FieldCurrency, Kind: KindText, Width: 8},
			{Label: "個人金額", Field: FieldPersonal, Kind: KindNumber, Width: 10},
			{Label: "TWD個人", Field: FieldTWDPers, Kind: KindCurrency, Width: 10},
			{Label: "代墊金額", Field: FieldAdvance, Kind: KindNumber, Width: 10},
			{Label: "TWD代墊", Field: FieldTWDAdv, Kind: KindCurrency, Width: 10},
			{Label: "TWD總額", Field: FieldTWDTotal, Kind: KindCurrency, Width: 10},
			{Label: "代墊人數", Field: FieldPayers, Kind: KindNumber, Width: 8},
			{Label: "每人每天", Field: FieldPerPersonDay, Kind: KindNumber, Width: 10},
		}
	case core.CategoryTaxi:
		return []Column{
			{Label: "日期", Field: FieldDate, Kind: KindDate, Width: 14},
			{Label: "地區", Field: FieldRegion, Kind: KindText, Width: 16},
			{Label: "幣別", Field: FieldCurrency, Kind: KindText, Width: 10},
			{Label: "金額", Field: FieldAmount, Kind: KindNumber, Width: 12},
			{Label: "匯率", Field: FieldRate, Kind: KindNumber, Width: 10},
			{Label: "TWD", Field: FieldTWD, Kind: KindCurrency, Width: 12},
			{Label: "備註", Field: FieldNote, Kind: KindText, Width: 26},
		}
	case core.CategoryOthers:
		return []Column{
			{Label: "日期", Field: FieldDate, Kind: KindDate, Width: 14},
			{Label: "分類", Field: FieldSubKind, Kind: KindText, Width: 14},
			{Label: "說明", Field: FieldRegion, Kind: KindText, Width: 22},
			{Label: "幣別", Field: FieldCurrency, Kind: KindText, Width: 10},
			{Label: "金額", Field: FieldAmount, Kind: KindNumber, Width: 12},
			{Label: "TWD", Field: FieldTWD, Kind: KindCurrency, Width: 12},
			{Label: "備註", Field: FieldNote, Kind: KindText, Width: 16},
		}
	default:
		// Internet, Social, Gift, HandlingFee, PerDiem share one schema.
		return []Column{
			{Label: "日期", Field: FieldDate, Kind: KindDate, Width: 14},
			{Label: "說明", Field: FieldRegion, Kind: KindText, Width: 24},
			{Label: "幣別", Field: FieldCurrency, Kind: KindText, Width: 10},
			{Label: "金額", Field: FieldAmount, Kind: KindNumber, Width: 12},
			{Label: "匯率", Field: FieldRate, Kind: KindNumber, Width: 10},
			{Label: "TWD", Field: FieldTWD, Kind: KindCurrency, Width: 12},
			{Label: "備註", Field: FieldNote, Kind: KindText, Width: 18},
		}
	}
}

// FieldValue renders one column value of an item as a plain string. All sinks
// go through this so every surface shows identical values.
func FieldValue(it core.Item, field string) string {
	switch field {
	case FieldSeq:
		return strconv.Itoa(it.Sequence)
	case FieldDate:
		return it.Date.String()
	case FieldRegion:
		return it.Region
	case FieldCurrency:
		return it.Currency
	case FieldAmount:
		return it.Amount.String()
	case FieldRate:
		return it.Rate.String()
	case FieldTWD:
		return it.TWDAmount.String()
	case FieldNote:
		return it.Note
	case FieldSubKind:
		return it.SubKind
	}
	if f := it.Flight; f != nil {
		switch field {
		case FieldFlightCode:
			return f.Code
		case FieldDeparture:
			return f.Departure
		case FieldArrival:
			return f.Arrival
		case FieldDepTime:
			return f.DepTime
		case FieldArrTime:
			return f.ArrTime
		}
	}
	if l := it.Lodging; l != nil {
		switch field {
		case FieldNights:
			return strconv.Itoa(l.Nights)
		case FieldPersonal:
			return l.PersonalAmount.String()
		case FieldTWDPers:
			return l.TWDPersonal.String()
		case FieldAdvance:
			return l.AdvanceAmount.String()
		case FieldTWDAdv:
			return l.TWDAdvance.String()
		case FieldTWDTotal:
			return l.TWDTotal.String()
		case FieldPerPersonDay:
			return l.PerPersonPerDay.String()
		case FieldPayers:
			return strconv.Itoa(l.AdvancePayers)
		}
	}
	return ""
}
