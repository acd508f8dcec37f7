// Package backend assembles the store ports for the configured data backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/amqp"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/config"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/gas"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/memory"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/sheets"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/storage"
)

// Type selects the data backend.
type Type string

const (
	MemoryBackend Type = "memory"
	GASBackend    Type = "gas"
	SheetsBackend Type = "sheets"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string { return string(t) }

// IsValid returns true for a known backend type.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, GASBackend, SheetsBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result bundles the assembled ports. Identity is nil when the backend has
// no account store; callers fall back to an in-memory one for development.
type Result struct {
	Reports  store.ReportStore
	Rates    store.RateSource
	Cities   store.CitySearcher
	Flights  store.FlightSearcher
	Identity store.Identity

	// Local is set for the sqlite backend; the sync worker drains it.
	Local *storage.Repository
	// Notifier is set when AMQP is configured alongside the sqlite backend.
	Notifier *amqp.Client

	Cleanup CleanupFunc
}

// Create assembles the backend named by the config.
func Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case MemoryBackend:
		return createMemory(ctx)
	case GASBackend:
		return createGAS(ctx, cfg)
	case SheetsBackend:
		return createSheets(ctx, cfg)
	case SQLiteBackend:
		return createSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", t)
	}
}

func createMemory(ctx context.Context) (*Result, error) {
	st := memory.New()
	slog.InfoContext(ctx, "Initialized memory backend")
	return &Result{
		Reports:  st,
		Rates:    st,
		Cities:   st,
		Flights:  st,
		Identity: st,
	}, nil
}

func createGAS(ctx context.Context, cfg *config.Config) (*Result, error) {
	cli, err := gas.New(cfg.GASEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize Apps Script client: %w", err)
	}
	slog.InfoContext(ctx, "Initialized Apps Script backend", "endpoint", cfg.GASEndpoint)
	return &Result{
		Reports:  cli,
		Rates:    cli,
		Cities:   cli,
		Flights:  cli,
		Identity: cli,
	}, nil
}

func createSheets(ctx context.Context, cfg *config.Config) (*Result, error) {
	cli, err := sheets.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	slog.InfoContext(ctx, "Initialized Google Sheets backend",
		"spreadsheet_id", cfg.GoogleSpreadsheetID)
	// The spreadsheet holds no account data; Identity stays nil.
	return &Result{
		Reports: cli,
		Rates:   cli,
		Cities:  cli,
		Flights: cli,
	}, nil
}

func createSQLite(ctx context.Context, cfg *config.Config) (*Result, error) {
	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	var notifier *amqp.Client
	if cfg.AMQPURL != "" {
		notifier, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync notifications",
				"error", err)
			notifier = nil
		} else {
			slog.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	slog.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", notifier != nil)

	cleanup := func() error {
		if notifier != nil {
			notifier.Close()
		}
		return repo.Close()
	}
	return &Result{
		Reports:  repo,
		Rates:    repo,
		Cities:   repo,
		Flights:  repo,
		Local:    repo,
		Notifier: notifier,
		Cleanup:  cleanup,
	}, nil
}
