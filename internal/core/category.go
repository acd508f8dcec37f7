package core

// Category identifies one of the nine fixed expense kinds of a trip report.
type Category string

const (
	CategoryFlight        Category = "Flight"
	CategoryAccommodation Category = "Accommodation"
	CategoryTaxi          Category = "Taxi"
	CategoryInternet      Category = "Internet"
	CategorySocial        Category = "Social"
	CategoryGift          Category = "Gift"
	CategoryHandlingFee   Category = "HandlingFee"
	CategoryPerDiem       Category = "PerDiem"
	CategoryOthers        Category = "Others"
)

// displayOrder is the fixed presentation order of report sections,
// independent of entry order.
var displayOrder = []Category{
	CategoryFlight,
	CategoryAccommodation,
	CategoryTaxi,
	CategoryInternet,
	CategorySocial,
	CategoryGift,
	CategoryHandlingFee,
	CategoryPerDiem,
	CategoryOthers,
}

// Categories returns all categories in display order. The returned slice is a
// copy and safe to mutate.
func Categories() []Category {
	out := make([]Category, len(displayOrder))
	copy(out, displayOrder)
	return out
}

// IsValid reports whether c is one of the nine known categories.
func (c Category) IsValid() bool {
	for _, known := range displayOrder {
		if c == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

var categoryTitles = map[Category]string{
	CategoryFlight:        "機票明細 (Flight Details)",
	CategoryAccommodation: "住宿明細 (Accommodation Details)",
	CategoryTaxi:          "計程車明細 (Taxi Details)",
	CategoryInternet:      "網路費明細 (Internet Details)",
	CategorySocial:        "交際費明細 (Social Details)",
	CategoryGift:          "禮品費明細 (Gift Details)",
	CategoryHandlingFee:   "手續費明細 (Handling Fee Details)",
	CategoryPerDiem:       "日支費明細 (Per Diem Details)",
	CategoryOthers:        "其他費明細 (Others Details)",
}

// Title returns the bilingual section title used on report output.
func (c Category) Title() string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}
