package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func newRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := NewRepository(filepath.Join(t.TempDir(), "trip.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func taxi(twd string) core.Item {
	return core.Item{
		Category:  core.CategoryTaxi,
		Date:      core.NewDate(2026, 1, 10),
		Region:    "Taipei",
		Currency:  "TWD",
		Rate:      d("1"),
		Amount:    d(twd),
		TWDAmount: d(twd),
	}
}

func TestAddAndGetReport(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	id, err := r.CreateReport(ctx, "u-1", d("31.48"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "R0001" {
		t.Fatalf("id: %q", id)
	}

	lodging := core.Item{
		Category: core.CategoryAccommodation,
		Date:     core.NewDate(2026, 1, 10),
		Region:   "Osaka",
		Currency: "JPY",
		Rate:     d("0.21"),
		Amount:   d("60000"),
		Lodging: &core.LodgingDetails{
			Nights:          2,
			AdvancePayers:   1,
			PersonalAmount:  d("30000"),
			AdvanceAmount:   d("30000"),
			Total:           d("60000"),
			TWDPersonal:     d("6300"),
			TWDAdvance:      d("6300"),
			TWDTotal:        d("12600"),
			PerPersonPerDay: d("15000"),
		},
	}
	if err := r.AddItem(ctx, id, taxi("630")); err != nil {
		t.Fatalf("add taxi: %v", err)
	}
	if err := r.AddItem(ctx, id, lodging); err != nil {
		t.Fatalf("add lodging: %v", err)
	}

	rep, err := r.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rep.Items[core.CategoryTaxi]) != 1 || rep.Items[core.CategoryTaxi][0].Sequence != 1 {
		t.Fatalf("taxi items: %+v", rep.Items[core.CategoryTaxi])
	}
	got := rep.Items[core.CategoryAccommodation][0]
	if got.Lodging == nil || got.Lodging.Nights != 2 || !got.Lodging.TWDTotal.Equal(d("12600")) {
		t.Fatalf("lodging details: %+v", got.Lodging)
	}
	if !rep.Header.CategoryTotals[core.CategoryAccommodation].Equal(d("12600")) {
		t.Fatalf("lodging total: %s", rep.Header.CategoryTotals[core.CategoryAccommodation])
	}

	if _, err := r.GetReport(ctx, "R9999"); !errors.Is(err, store.ErrReportNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestDeleteItemRenumbersAndQueues(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	id, _ := r.CreateReport(ctx, "u-1", d("1"))

	for _, amt := range []string{"100", "200", "300"} {
		if err := r.AddItem(ctx, id, taxi(amt)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := r.DeleteItem(ctx, id, core.CategoryTaxi, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rep, _ := r.GetReport(ctx, id)
	items := rep.Items[core.CategoryTaxi]
	if len(items) != 2 || items[0].Sequence != 1 || items[1].Sequence != 2 {
		t.Fatalf("items: %+v", items)
	}
	if !items[1].TWDAmount.Equal(d("300")) {
		t.Fatalf("wrong item deleted: %s", items[1].TWDAmount)
	}
	if err := r.DeleteItem(ctx, id, core.CategoryTaxi, 9); !errors.Is(err, store.ErrItemNotFound) {
		t.Fatalf("got %v", err)
	}

	ops, err := r.PendingOps(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	// Three adds then one delete, in insertion order.
	if len(ops) != 4 {
		t.Fatalf("ops: %d", len(ops))
	}
	if ops[0].Op != "add" || !ops[0].Item.TWDAmount.Equal(d("100")) {
		t.Fatalf("first op: %+v", ops[0])
	}
	last := ops[3]
	if last.Op != "delete" || last.Sequence != 2 || last.Category != core.CategoryTaxi {
		t.Fatalf("last op: %+v", last)
	}
}

func TestSyncQueueLifecycle(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	id, _ := r.CreateReport(ctx, "u-1", d("1"))
	if err := r.AddItem(ctx, id, taxi("100")); err != nil {
		t.Fatalf("add: %v", err)
	}

	ops, _ := r.PendingOps(ctx, 10)
	if len(ops) != 1 {
		t.Fatalf("ops: %d", len(ops))
	}
	if err := r.MarkSynced(ctx, ops[0].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if ops, _ = r.PendingOps(ctx, 10); len(ops) != 0 {
		t.Fatalf("synced op still pending: %+v", ops)
	}

	if err := r.AddItem(ctx, id, taxi("200")); err != nil {
		t.Fatalf("add: %v", err)
	}
	ops, _ = r.PendingOps(ctx, 10)

	// First failure keeps the op pending, the second exhausts the budget.
	if err := r.MarkSyncError(ctx, ops[0].ID, 2); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if ops, _ = r.PendingOps(ctx, 10); len(ops) != 1 {
		t.Fatalf("op should stay pending after first failure")
	}
	if err := r.MarkSyncError(ctx, ops[0].ID, 2); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if ops, _ = r.PendingOps(ctx, 10); len(ops) != 0 {
		t.Fatalf("exhausted op must leave the queue: %+v", ops)
	}
}

func TestTripInfoAndRates(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	id, _ := r.CreateReport(ctx, "u-1", d("31.48"))

	if err := r.SetTripInfo(ctx, id, d("4.5"), d("31.48"), "2026/01/10", "2026/01/14"); err != nil {
		t.Fatalf("set trip info: %v", err)
	}
	rep, _ := r.GetReport(ctx, id)
	if !rep.Header.Days.Equal(d("4.5")) || rep.Header.StartDate != "2026/01/10" {
		t.Fatalf("header: %+v", rep.Header)
	}

	date := core.NewDate(2026, 1, 1)
	if err := r.PutRate(ctx, "usd", date, d("31.10")); err != nil {
		t.Fatalf("put rate: %v", err)
	}
	rate, err := r.ExchangeRate(ctx, "USD", date)
	if err != nil || !rate.Equal(d("31.10")) {
		t.Fatalf("got %s, %v", rate, err)
	}
	if _, err := r.ExchangeRate(ctx, "JPY", date); !errors.Is(err, store.ErrNoRate) {
		t.Fatalf("got %v", err)
	}
}

func TestSearchers(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	for _, c := range []string{"Tokyo", "Taipei", "Osaka"} {
		if err := r.PutCity(ctx, c); err != nil {
			t.Fatalf("put city: %v", err)
		}
	}
	cities, err := r.SearchCity(ctx, "t")
	if err != nil || len(cities) != 2 {
		t.Fatalf("cities: %v, %v", cities, err)
	}

	info := store.FlightInfo{Departure: "TPE", Arrival: "KIX", DepTime: "09:20", ArrTime: "13:05"}
	if err := r.PutFlight(ctx, "BR189", info); err != nil {
		t.Fatalf("put flight: %v", err)
	}
	got, err := r.SearchFlight(ctx, "br189", core.NewDate(2026, 1, 2))
	if err != nil || got.Arrival != "KIX" {
		t.Fatalf("flight: %+v, %v", got, err)
	}
}
