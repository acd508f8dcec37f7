// Package sheets is a report store backed directly by a Google Spreadsheet,
// for deployments that skip the Apps Script layer. Layout: a reports sheet
// holding one header row per report, one sheet per item category named by the
// category's wire key, plus rates, cities and flights lookup sheets. Row one
// of every sheet carries the native field labels; rows are decoded by zipping
// them against that header, so column order is owned by the spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/labels"
)

// Every sheet keys its rows by report id in this column.
const labelReportID = "報表編號"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportsSheet  string
	ratesSheet    string
	citiesSheet   string
	flightsSheet  string

	sheetIDs map[string]int64 // title -> numeric sheet id, for structural updates
}

var (
	_ store.ReportStore    = (*Client)(nil)
	_ store.RateSource     = (*Client)(nil)
	_ store.CitySearcher   = (*Client)(nil)
	_ store.FlightSearcher = (*Client)(nil)
)

// NewFromEnv builds a client from the environment.
// Required: GOOGLE_SPREADSHEET_ID plus service-account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: SHEETS_REPORTS_NAME (default "Reports"),
// SHEETS_RATES_NAME ("Rates"), SHEETS_CITIES_NAME ("Cities"),
// SHEETS_FLIGHTS_NAME ("Flights").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	c := &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportsSheet:  envOr("SHEETS_REPORTS_NAME", "Reports"),
		ratesSheet:    envOr("SHEETS_RATES_NAME", "Rates"),
		citiesSheet:   envOr("SHEETS_CITIES_NAME", "Cities"),
		flightsSheet:  envOr("SHEETS_FLIGHTS_NAME", "Flights"),
	}
	return c, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// newSheetsService initializes the Sheets service from service-account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// CreateReport implements store.ReportStore. Report ids are "R" plus a
// zero-padded counter derived from the ids already present.
func (c *Client) CreateReport(ctx context.Context, userID string, exchangeRate decimal.Decimal) (string, error) {
	rows, err := c.readRows(ctx, c.reportsSheet)
	if err != nil {
		return "", err
	}
	max := 0
	for _, row := range rows {
		var n int
		if _, err := fmt.Sscanf(rowValue(row, labelReportID), "R%d", &n); err == nil && n > max {
			max = n
		}
	}
	id := fmt.Sprintf("R%04d", max+1)

	header := core.Header{
		ReportID:       id,
		UserID:         userID,
		RateUSD:        exchangeRate,
		CategoryTotals: make(map[core.Category]decimal.Decimal),
	}
	record := labels.HeaderToLabels(header, decimal.Zero)
	record[labelReportID] = id
	if err := c.appendRecord(ctx, c.reportsSheet, record); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Report created", "report_id", id, "user_id", userID)
	return id, nil
}

// GetReport implements store.ReportStore.
func (c *Client) GetReport(ctx context.Context, reportID string) (store.Report, error) {
	rows, err := c.readRows(ctx, c.reportsSheet)
	if err != nil {
		return store.Report{}, err
	}
	var headerRow map[string]any
	for _, row := range rows {
		if rowValue(row, labelReportID) == reportID {
			headerRow = row
			break
		}
	}
	if headerRow == nil {
		return store.Report{}, store.ErrReportNotFound
	}

	rep := store.Report{
		Header: labels.HeaderFromLabels(reportID, headerRow),
		Items:  make(store.ItemsByCategory),
	}
	for _, cat := range core.Categories() {
		items, err := c.readItems(ctx, reportID, cat)
		if err != nil {
			return store.Report{}, err
		}
		if len(items) > 0 {
			rep.Items[cat] = items
		}
	}
	return rep, nil
}

// AddItem implements store.ReportStore. The sequence is assigned from the
// rows already stored for this report and category.
func (c *Client) AddItem(ctx context.Context, reportID string, item core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if _, err := c.headerRowIndex(ctx, reportID); err != nil {
		return err
	}

	existing, err := c.readItems(ctx, reportID, item.Category)
	if err != nil {
		return err
	}
	item.Sequence = len(existing) + 1

	record := labels.ItemToLabels(item)
	record[labelReportID] = reportID
	if err := c.appendRecord(ctx, labels.WireCategory(item.Category), record); err != nil {
		return err
	}
	return c.refreshTotals(ctx, reportID, item.Category)
}

// DeleteItem implements store.ReportStore. The row is removed structurally
// and the remaining rows of the report renumber to stay dense.
func (c *Client) DeleteItem(ctx context.Context, reportID string, cat core.Category, sequence int) error {
	if sequence < 1 {
		return core.ErrInvalidSequence
	}
	sheet := labels.WireCategory(cat)
	hdr, rows, err := c.readSheet(ctx, sheet)
	if err != nil {
		return err
	}

	seqCol := columnIndex(hdr, "次序")
	target := -1 // zero-based row index within the data rows
	for i, row := range rows {
		m := zipRow(hdr, row)
		if rowValue(m, labelReportID) == reportID && intValue(m["次序"]) == sequence {
			target = i
			break
		}
	}
	if target < 0 {
		return store.ErrItemNotFound
	}

	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	// Row target sits at spreadsheet row target+2 (one-based, after the
	// label row); DeleteDimension takes zero-based indexes.
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(target + 1),
					EndIndex:   int64(target + 2),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row in %s: %w", sheet, err)
	}

	if err := c.renumber(ctx, reportID, sheet, hdr, seqCol); err != nil {
		return err
	}
	return c.refreshTotals(ctx, reportID, cat)
}

// renumber rewrites the sequence cells for a report's surviving rows.
func (c *Client) renumber(ctx context.Context, reportID, sheet string, hdr []string, seqCol int) error {
	if seqCol < 0 {
		return nil
	}
	_, rows, err := c.readSheet(ctx, sheet)
	if err != nil {
		return err
	}
	var data []*gsheet.ValueRange
	next := 0
	for i, row := range rows {
		m := zipRow(hdr, row)
		if rowValue(m, labelReportID) != reportID {
			continue
		}
		next++
		if intValue(m["次序"]) == next {
			continue
		}
		cell := fmt.Sprintf("%s!%s%d", sheet, columnLetter(seqCol), i+2)
		data = append(data, &gsheet.ValueRange{Range: cell, Values: [][]any{{next}}})
	}
	if len(data) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("renumber %s: %w", sheet, err)
	}
	return nil
}

// refreshTotals recomputes one category's running total on the report header
// row, plus the separate personal lodging total when the category is
// accommodation.
func (c *Client) refreshTotals(ctx context.Context, reportID string, cat core.Category) error {
	items, err := c.readItems(ctx, reportID, cat)
	if err != nil {
		return err
	}
	total := decimal.Zero
	personal := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalTWD())
		personal = personal.Add(it.PersonalTWD())
	}

	rowIdx, err := c.headerRowIndex(ctx, reportID)
	if err != nil {
		return err
	}
	hdr, _, err := c.readSheet(ctx, c.reportsSheet)
	if err != nil {
		return err
	}

	updates := map[string]decimal.Decimal{
		labels.HeaderTotalLabel(cat): total,
	}
	if cat == core.CategoryAccommodation {
		updates[labels.PersonalLodgingTotalLabel] = personal
	}
	var data []*gsheet.ValueRange
	for label, v := range updates {
		col := columnIndex(hdr, label)
		if col < 0 {
			continue
		}
		cell := fmt.Sprintf("%s!%s%d", c.reportsSheet, columnLetter(col), rowIdx+2)
		data = append(data, &gsheet.ValueRange{Range: cell, Values: [][]any{{v.InexactFloat64()}}})
	}
	if len(data) == 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("refresh totals: %w", err)
	}
	return nil
}

// ExchangeRate implements store.RateSource over the rates sheet, whose
// columns are currency, date, rate.
func (c *Client) ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.ratesSheet+"!A2:C").Context(ctx).Do()
	if err != nil {
		return decimal.Zero, fmt.Errorf("read %s: %w", c.ratesSheet, err)
	}
	want := date.String()
	for _, row := range resp.Values {
		if len(row) < 3 {
			continue
		}
		if !strings.EqualFold(cellString(row[0]), currency) || cellString(row[1]) != want {
			continue
		}
		rate := decValue(row[2])
		if rate.IsPositive() {
			return rate, nil
		}
	}
	return decimal.Zero, store.ErrNoRate
}

// SearchCity implements store.CitySearcher with a case-insensitive prefix
// match over the cities sheet's first column.
func (c *Client) SearchCity(ctx context.Context, query string) ([]string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.citiesSheet+"!A2:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.citiesSheet, err)
	}
	var out []string
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(cellString(row[0]))
		if name != "" && strings.HasPrefix(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	return out, nil
}

// SearchFlight implements store.FlightSearcher over the flights sheet, whose
// columns are code, departure, arrival, departure time, arrival time.
func (c *Client) SearchFlight(ctx context.Context, code string, date core.Date) (store.FlightInfo, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.flightsSheet+"!A2:E").Context(ctx).Do()
	if err != nil {
		return store.FlightInfo{}, fmt.Errorf("read %s: %w", c.flightsSheet, err)
	}
	for _, row := range resp.Values {
		if len(row) < 5 || !strings.EqualFold(cellString(row[0]), code) {
			continue
		}
		return store.FlightInfo{
			Departure: cellString(row[1]),
			Arrival:   cellString(row[2]),
			DepTime:   cellString(row[3]),
			ArrTime:   cellString(row[4]),
		}, nil
	}
	return store.FlightInfo{}, store.ErrItemNotFound
}

func (c *Client) readItems(ctx context.Context, reportID string, cat core.Category) ([]core.Item, error) {
	hdr, rows, err := c.readSheet(ctx, labels.WireCategory(cat))
	if err != nil {
		return nil, err
	}
	var items []core.Item
	for _, row := range rows {
		m := zipRow(hdr, row)
		if rowValue(m, labelReportID) != reportID {
			continue
		}
		it, err := labels.ItemFromLabels(cat, m)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", labels.WireCategory(cat), err)
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })
	return items, nil
}

func (c *Client) headerRowIndex(ctx context.Context, reportID string) (int, error) {
	hdr, rows, err := c.readSheet(ctx, c.reportsSheet)
	if err != nil {
		return 0, err
	}
	col := columnIndex(hdr, labelReportID)
	if col < 0 {
		return 0, fmt.Errorf("sheet %s: missing %s column", c.reportsSheet, labelReportID)
	}
	for i, row := range rows {
		if col < len(row) && cellString(row[col]) == reportID {
			return i, nil
		}
	}
	return 0, store.ErrReportNotFound
}

// readSheet returns the label row and the data rows below it.
func (c *Client) readSheet(ctx context.Context, sheet string) ([]string, [][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil, fmt.Errorf("sheet %s: missing label row", sheet)
	}
	hdr := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		hdr[i] = strings.TrimSpace(cellString(v))
	}
	return hdr, resp.Values[1:], nil
}

// readRows returns every data row of a sheet as a label-keyed map.
func (c *Client) readRows(ctx context.Context, sheet string) ([]map[string]any, error) {
	hdr, rows, err := c.readSheet(ctx, sheet)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, zipRow(hdr, row))
	}
	return out, nil
}

// appendRecord writes a label-keyed record as the next row of a sheet,
// laying values out in the sheet's own column order.
func (c *Client) appendRecord(ctx context.Context, sheet string, record map[string]any) error {
	hdr, rows, err := c.readSheet(ctx, sheet)
	if err != nil {
		return err
	}
	row := make([]any, len(hdr))
	for i, label := range hdr {
		if v, ok := record[label]; ok {
			row[i] = v
		} else {
			row[i] = ""
		}
	}
	nextRow := len(rows) + 2
	rng := fmt.Sprintf("%s!A%d", sheet, nextRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("spreadsheet metadata: %w", err)
	}
	c.sheetIDs = make(map[string]int64, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok := c.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("no sheet named %q", title)
	}
	return id, nil
}
