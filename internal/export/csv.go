package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/report"
)

// CSVSink writes the summary block followed by one table per section,
// separated by blank lines. Spreadsheet apps open it as a single sheet.
type CSVSink struct{}

func (CSVSink) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVSink) Extension() string   { return "csv" }

func (CSVSink) Write(w io.Writer, m report.Model) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"報表", m.ReportID},
		{"使用者", m.User},
		{"期間", m.Summary.Period},
		{"商旅天數", m.Summary.Days.String()},
		{"USD匯率", m.Summary.RateUSD.String()},
		{"總額 TWD", m.Summary.TotalTWD.String()},
		{"個人總額 TWD", m.Summary.PersonalTWD.String()},
		{"平均每天 TWD", m.Summary.AvgDayTWD.String()},
		{"總額 USD", m.Summary.TotalUSD.String()},
		{"個人總額 USD", m.Summary.PersonalUSD.String()},
		{"平均每天 USD", m.Summary.AvgDayUSD.String()},
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	for _, sec := range m.Sections {
		if err := cw.Write([]string{}); err != nil {
			return fmt.Errorf("write separator: %w", err)
		}
		if err := cw.Write([]string{sec.Title}); err != nil {
			return fmt.Errorf("write section title: %w", err)
		}

		header := make([]string, 0, len(sec.Columns)+1)
		header = append(header, "次序")
		for _, col := range sec.Columns {
			header = append(header, col.Label)
		}
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write section header: %w", err)
		}

		for _, it := range sec.Items {
			row := make([]string, 0, len(sec.Columns)+1)
			row = append(row, report.FieldValue(it, report.FieldSeq))
			for _, col := range sec.Columns {
				row = append(row, report.FieldValue(it, col.Field))
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write item row: %w", err)
			}
		}

		if err := cw.Write([]string{"小計", sec.Total.Display}); err != nil {
			return fmt.Errorf("write section total: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
