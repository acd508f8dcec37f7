package export

import (
	"encoding/json"
	"io"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/report"
)

// JSONSink writes the model with all values pre-rendered as strings, the
// same representation the browser consumes.
type JSONSink struct{}

func (JSONSink) ContentType() string { return "application/json; charset=utf-8" }
func (JSONSink) Extension() string   { return "json" }

type jsonSummary struct {
	Period      string `json:"period"`
	Days        string `json:"days"`
	RateUSD     string `json:"rateUsd"`
	TotalTWD    string `json:"totalTwd"`
	PersonalTWD string `json:"personalTwd"`
	AvgDayTWD   string `json:"avgDayTwd"`
	TotalUSD    string `json:"totalUsd"`
	PersonalUSD string `json:"personalUsd"`
	AvgDayUSD   string `json:"avgDayUsd"`
}

type jsonColumn struct {
	Label string `json:"label"`
	Field string `json:"field"`
	Kind  string `json:"kind"`
	Width int    `json:"width"`
}

type jsonSection struct {
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	Columns []jsonColumn        `json:"columns"`
	Rows    []map[string]string `json:"rows"`
	Total   string              `json:"total"`
}

type jsonChartPoint struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type jsonModel struct {
	ReportID string           `json:"reportId"`
	User     string           `json:"user"`
	Summary  jsonSummary      `json:"summary"`
	Chart    []jsonChartPoint `json:"chart"`
	Sections []jsonSection    `json:"sections"`
}

func (JSONSink) Write(w io.Writer, m report.Model) error {
	out := jsonModel{
		ReportID: m.ReportID,
		User:     m.User,
		Summary: jsonSummary{
			Period:      m.Summary.Period,
			Days:        m.Summary.Days.String(),
			RateUSD:     m.Summary.RateUSD.String(),
			TotalTWD:    m.Summary.TotalTWD.String(),
			PersonalTWD: m.Summary.PersonalTWD.String(),
			AvgDayTWD:   m.Summary.AvgDayTWD.String(),
			TotalUSD:    m.Summary.TotalUSD.String(),
			PersonalUSD: m.Summary.PersonalUSD.String(),
			AvgDayUSD:   m.Summary.AvgDayUSD.String(),
		},
		Chart:    make([]jsonChartPoint, 0, len(m.Chart)),
		Sections: make([]jsonSection, 0, len(m.Sections)),
	}
	for _, p := range m.Chart {
		out.Chart = append(out.Chart, jsonChartPoint{Name: p.Name, Value: p.Value.String()})
	}
	for _, sec := range m.Sections {
		js := jsonSection{
			ID:      sec.ID,
			Title:   sec.Title,
			Columns: make([]jsonColumn, 0, len(sec.Columns)),
			Rows:    make([]map[string]string, 0, len(sec.Items)),
			Total:   sec.Total.Display,
		}
		for _, col := range sec.Columns {
			js.Columns = append(js.Columns, jsonColumn{
				Label: col.Label,
				Field: col.Field,
				Kind:  string(col.Kind),
				Width: col.Width,
			})
		}
		for _, it := range sec.Items {
			row := make(map[string]string, len(sec.Columns)+1)
			row[report.FieldSeq] = report.FieldValue(it, report.FieldSeq)
			for _, col := range sec.Columns {
				row[col.Field] = report.FieldValue(it, col.Field)
			}
			js.Rows = append(js.Rows, row)
		}
		out.Sections = append(out.Sections, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
