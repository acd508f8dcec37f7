package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/amqp"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/config"
	applog "github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/storage"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/gas"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store/sheets"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting tripreport-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	local, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open local repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer local.Close()

	remote, err := remoteStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize remote store", applog.FieldError, err)
		os.Exit(1)
	}
	if remote == nil {
		logger.Error("No remote store configured; set GAS_ENDPOINT or GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(local, remote, cfg.SyncBatchSize, cfg.SyncMaxAttempts)

	// Drain whatever the previous run left behind before consuming.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeSync(gctx, func(msg *amqp.SyncMessage) error {
			return syncWorker.HandleSyncMessage(gctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Periodic drain catches mutations whose wake-up message was lost.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := syncWorker.Drain(gctx); err != nil {
					logger.Error("Periodic sync failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// remoteStore picks the push target: the Apps Script endpoint when set,
// otherwise the spreadsheet itself.
func remoteStore(ctx context.Context, cfg *config.Config) (store.ReportStore, error) {
	if cfg.GASEndpoint != "" {
		return gas.New(cfg.GASEndpoint, nil)
	}
	if cfg.GoogleSpreadsheetID != "" {
		return sheets.NewFromEnv(ctx)
	}
	return nil, nil
}
