// Package storage is the local SQLite copy of report data, used when the
// service runs offline-first. Every mutation lands here immediately and is
// queued for the sync worker, which replays it against the remote store.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

type Repository struct {
	db *sql.DB
}

var (
	_ store.ReportStore    = (*Repository)(nil)
	_ store.RateSource     = (*Repository)(nil)
	_ store.CitySearcher   = (*Repository)(nil)
	_ store.FlightSearcher = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateReport implements store.ReportStore.
func (r *Repository) CreateReport(ctx context.Context, userID string, exchangeRate decimal.Decimal) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var max sql.NullInt64
	row := tx.QueryRowContext(ctx,
		`SELECT MAX(CAST(SUBSTR(id, 2) AS INTEGER)) FROM reports WHERE id LIKE 'R%'`)
	if err := row.Scan(&max); err != nil {
		return "", fmt.Errorf("next report id: %w", err)
	}
	id := fmt.Sprintf("R%04d", max.Int64+1)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, user_id, rate_usd) VALUES (?, ?, ?)`,
		id, userID, exchangeRate.String())
	if err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Report created locally", "report_id", id, "user_id", userID)
	return id, nil
}

// GetReport implements store.ReportStore. Category running totals are
// recomputed from the stored items on every read.
func (r *Repository) GetReport(ctx context.Context, reportID string) (store.Report, error) {
	var (
		userID, days, rateUSD, startDate, endDate string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, days, rate_usd, start_date, end_date FROM reports WHERE id = ?`,
		reportID).Scan(&userID, &days, &rateUSD, &startDate, &endDate)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Report{}, store.ErrReportNotFound
	}
	if err != nil {
		return store.Report{}, fmt.Errorf("select report: %w", err)
	}

	rep := store.Report{
		Header: core.Header{
			ReportID:       reportID,
			UserID:         userID,
			Days:           parseDec(days),
			RateUSD:        parseDec(rateUSD),
			StartDate:      startDate,
			EndDate:        endDate,
			CategoryTotals: make(map[core.Category]decimal.Decimal),
		},
		Items: make(store.ItemsByCategory),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, seq, entry_date, region, note, sub_kind, currency, rate, amount, twd_amount, details
		 FROM items WHERE report_id = ? ORDER BY category, seq`, reportID)
	if err != nil {
		return store.Report{}, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			catStr, entryDate, region, note, subKind, currency string
			seq                                                int
			rate, amount, twdAmount, details                   string
		)
		if err := rows.Scan(&catStr, &seq, &entryDate, &region, &note, &subKind,
			&currency, &rate, &amount, &twdAmount, &details); err != nil {
			return store.Report{}, fmt.Errorf("scan item: %w", err)
		}
		it, err := buildItem(core.Category(catStr), seq, entryDate, region, note, subKind,
			currency, rate, amount, twdAmount, details)
		if err != nil {
			return store.Report{}, err
		}
		rep.Items[it.Category] = append(rep.Items[it.Category], it)
	}
	if err := rows.Err(); err != nil {
		return store.Report{}, fmt.Errorf("iterate items: %w", err)
	}

	for cat, items := range rep.Items {
		sum := decimal.Zero
		for _, it := range items {
			sum = sum.Add(it.TotalTWD())
		}
		rep.Header.CategoryTotals[cat] = sum
	}
	return rep, nil
}

// AddItem implements store.ReportStore. The insert and its sync-queue entry
// commit in one transaction so the worker can never see a half-recorded
// mutation.
func (r *Repository) AddItem(ctx context.Context, reportID string, item core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := reportExists(ctx, tx, reportID); err != nil {
		return err
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE report_id = ? AND category = ?`,
		reportID, string(item.Category)).Scan(&count)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	item.Sequence = count + 1

	details, err := marshalDetails(item)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (report_id, category, seq, entry_date, region, note, sub_kind, currency, rate, amount, twd_amount, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reportID, string(item.Category), item.Sequence, item.Date.String(),
		item.Region, item.Note, item.SubKind, item.Currency,
		item.Rate.String(), item.Amount.String(), item.TWDAmount.String(), details)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal sync payload: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_queue (report_id, category, seq, op, payload) VALUES (?, ?, ?, 'add', ?)`,
		reportID, string(item.Category), item.Sequence, string(payload))
	if err != nil {
		return fmt.Errorf("enqueue sync: %w", err)
	}
	return tx.Commit()
}

// DeleteItem implements store.ReportStore. Later sequences shift down so the
// numbering stays dense, matching the remote store's behavior.
func (r *Repository) DeleteItem(ctx context.Context, reportID string, cat core.Category, sequence int) error {
	if sequence < 1 {
		return core.ErrInvalidSequence
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := reportExists(ctx, tx, reportID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM items WHERE report_id = ? AND category = ? AND seq = ?`,
		reportID, string(cat), sequence)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrItemNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET seq = seq - 1 WHERE report_id = ? AND category = ? AND seq > ?`,
		reportID, string(cat), sequence)
	if err != nil {
		return fmt.Errorf("renumber items: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sync_queue (report_id, category, seq, op) VALUES (?, ?, ?, 'delete')`,
		reportID, string(cat), sequence)
	if err != nil {
		return fmt.Errorf("enqueue sync: %w", err)
	}
	return tx.Commit()
}

// SetTripInfo stores the trip-level header fields.
func (r *Repository) SetTripInfo(ctx context.Context, reportID string, days, rateUSD decimal.Decimal, startDate, endDate string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reports SET days = ?, rate_usd = ?, start_date = ?, end_date = ? WHERE id = ?`,
		days.String(), rateUSD.String(), startDate, endDate, reportID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrReportNotFound
	}
	return nil
}

// PendingOp is one queued mutation awaiting replay against the remote store.
type PendingOp struct {
	ID       int64
	ReportID string
	Category core.Category
	Sequence int
	Op       string
	Item     core.Item // populated for add ops
}

// PendingOps returns up to limit queued mutations in insertion order.
func (r *Repository) PendingOps(ctx context.Context, limit int) ([]PendingOp, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, report_id, category, seq, op, payload FROM sync_queue
		 WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending ops: %w", err)
	}
	defer rows.Close()

	var ops []PendingOp
	for rows.Next() {
		var (
			op      PendingOp
			catStr  string
			payload string
		)
		if err := rows.Scan(&op.ID, &op.ReportID, &catStr, &op.Sequence, &op.Op, &payload); err != nil {
			return nil, fmt.Errorf("scan pending op: %w", err)
		}
		op.Category = core.Category(catStr)
		if op.Op == "add" && payload != "" {
			if err := json.Unmarshal([]byte(payload), &op.Item); err != nil {
				return nil, fmt.Errorf("decode sync payload %d: %w", op.ID, err)
			}
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// MarkSynced records a successful replay.
func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET sync_status = 'synced', synced_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	slog.InfoContext(ctx, "Sync op completed", "id", id)
	return nil
}

// MarkSyncError counts a failed attempt; the op stays pending until the
// attempt budget runs out.
func (r *Repository) MarkSyncError(ctx context.Context, id int64, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET attempts = attempts + 1,
		        sync_status = CASE WHEN attempts + 1 >= ? THEN 'error' ELSE 'pending' END
		 WHERE id = ?`, maxAttempts, id)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Sync op failed", "id", id)
	return nil
}

// ExchangeRate implements store.RateSource over the local rates table.
func (r *Repository) ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	var rate string
	err := r.db.QueryRowContext(ctx,
		`SELECT rate FROM rates WHERE currency = ? AND rate_date = ?`,
		strings.ToUpper(currency), date.String()).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, store.ErrNoRate
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("select rate: %w", err)
	}
	d := parseDec(rate)
	if !d.IsPositive() {
		return decimal.Zero, store.ErrNoRate
	}
	return d, nil
}

// PutRate upserts a cached exchange rate.
func (r *Repository) PutRate(ctx context.Context, currency string, date core.Date, rate decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rates (currency, rate_date, rate) VALUES (?, ?, ?)
		 ON CONFLICT (currency, rate_date) DO UPDATE SET rate = excluded.rate`,
		strings.ToUpper(currency), date.String(), rate.String())
	if err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	return nil
}

// SearchCity implements store.CitySearcher.
func (r *Repository) SearchCity(ctx context.Context, query string) ([]string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM cities WHERE name LIKE ? || '%' COLLATE NOCASE ORDER BY name`, q)
	if err != nil {
		return nil, fmt.Errorf("select cities: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// PutCity registers an autocomplete entry.
func (r *Repository) PutCity(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cities (name) VALUES (?) ON CONFLICT DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("upsert city: %w", err)
	}
	return nil
}

// SearchFlight implements store.FlightSearcher.
func (r *Repository) SearchFlight(ctx context.Context, code string, date core.Date) (store.FlightInfo, error) {
	var info store.FlightInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT departure, arrival, dep_time, arr_time FROM flights WHERE code = ? COLLATE NOCASE`,
		strings.ToUpper(code)).Scan(&info.Departure, &info.Arrival, &info.DepTime, &info.ArrTime)
	if errors.Is(err, sql.ErrNoRows) {
		return store.FlightInfo{}, store.ErrItemNotFound
	}
	if err != nil {
		return store.FlightInfo{}, fmt.Errorf("select flight: %w", err)
	}
	return info, nil
}

// PutFlight registers an autofill entry.
func (r *Repository) PutFlight(ctx context.Context, code string, info store.FlightInfo) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flights (code, departure, arrival, dep_time, arr_time) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (code) DO UPDATE SET departure = excluded.departure, arrival = excluded.arrival,
		        dep_time = excluded.dep_time, arr_time = excluded.arr_time`,
		strings.ToUpper(code), info.Departure, info.Arrival, info.DepTime, info.ArrTime)
	if err != nil {
		return fmt.Errorf("upsert flight: %w", err)
	}
	return nil
}

func reportExists(ctx context.Context, tx *sql.Tx, reportID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM reports WHERE id = ?`, reportID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("select report: %w", err)
	}
	return nil
}

// itemDetails carries the per-category extras as a JSON column.
type itemDetails struct {
	Flight  *core.FlightDetails  `json:"flight,omitempty"`
	Lodging *core.LodgingDetails `json:"lodging,omitempty"`
}

func marshalDetails(item core.Item) (string, error) {
	if item.Flight == nil && item.Lodging == nil {
		return "", nil
	}
	b, err := json.Marshal(itemDetails{Flight: item.Flight, Lodging: item.Lodging})
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	return string(b), nil
}

func buildItem(cat core.Category, seq int, entryDate, region, note, subKind, currency, rate, amount, twdAmount, details string) (core.Item, error) {
	date, err := core.ParseDate(entryDate)
	if err != nil {
		return core.Item{}, fmt.Errorf("stored item date %q: %w", entryDate, err)
	}
	it := core.Item{
		Category:  cat,
		Sequence:  seq,
		Date:      date,
		Region:    region,
		Note:      note,
		SubKind:   subKind,
		Currency:  currency,
		Rate:      parseDec(rate),
		Amount:    parseDec(amount),
		TWDAmount: parseDec(twdAmount),
	}
	if details != "" {
		var d itemDetails
		if err := json.Unmarshal([]byte(details), &d); err != nil {
			return core.Item{}, fmt.Errorf("decode item details: %w", err)
		}
		it.Flight = d.Flight
		it.Lodging = d.Lodging
	}
	return it, nil
}

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
