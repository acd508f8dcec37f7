package sheets

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zipRow pairs a data row with the sheet's label row. Short rows leave
// trailing labels absent; blank cells stay out of the map so the labels
// package sees them as missing rather than empty strings.
func zipRow(hdr []string, row []any) map[string]any {
	m := make(map[string]any, len(hdr))
	for i, label := range hdr {
		if label == "" || i >= len(row) {
			continue
		}
		if s, ok := row[i].(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		m[label] = row[i]
	}
	return m
}

func rowValue(m map[string]any, label string) string {
	return strings.TrimSpace(cellString(m[label]))
}

func cellString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return decValue(v).String()
	}
}

func decValue(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func intValue(v any) int {
	return int(decValue(v).IntPart())
}

func columnIndex(hdr []string, label string) int {
	for i, l := range hdr {
		if l == label {
			return i
		}
	}
	return -1
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(idx int) string {
	letters := ""
	for idx >= 0 {
		letters = string(rune('A'+idx%26)) + letters
		idx = idx/26 - 1
	}
	return letters
}
