package sheets

import "testing"

func TestZipRow(t *testing.T) {
	hdr := []string{"報表編號", "次序", "金額", "", "備註"}
	row := []any{"R0001", float64(2), "310.5", "ignored"}

	m := zipRow(hdr, row)
	if rowValue(m, "報表編號") != "R0001" {
		t.Fatalf("report id: %v", m)
	}
	if intValue(m["次序"]) != 2 {
		t.Fatalf("sequence: %v", m["次序"])
	}
	if !decValue(m["金額"]).Equal(decValue(310.5)) {
		t.Fatalf("amount: %v", m["金額"])
	}
	if _, ok := m["備註"]; ok {
		t.Fatalf("short row must leave trailing labels absent")
	}
	if _, ok := m[""]; ok {
		t.Fatalf("blank labels must not key cells")
	}
}

func TestZipRowSkipsBlankCells(t *testing.T) {
	m := zipRow([]string{"備註"}, []any{"   "})
	if _, ok := m["備註"]; ok {
		t.Fatalf("blank cell must be treated as missing")
	}
}

func TestColumnLetter(t *testing.T) {
	cases := []struct {
		idx  int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}
	for _, tc := range cases {
		if got := columnLetter(tc.idx); got != tc.want {
			t.Errorf("columnLetter(%d) = %q, want %q", tc.idx, got, tc.want)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	hdr := []string{"報表編號", "次序", "金額"}
	if got := columnIndex(hdr, "次序"); got != 1 {
		t.Fatalf("got %d", got)
	}
	if got := columnIndex(hdr, "匯率"); got != -1 {
		t.Fatalf("got %d", got)
	}
}
