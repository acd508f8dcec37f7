package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/backend"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/config"
	apphttp "github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/http"
	applog "github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/log"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/rates"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/services"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/session"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

func main() {
	// .env is for local development; absent in production.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := backend.Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to assemble backend",
			applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err)
			}
		}()
	}

	resolver := rates.NewResolver(be.Rates)
	var notifier services.SyncNotifier
	if be.Notifier != nil {
		notifier = be.Notifier
	}
	svc := services.NewReportService(be.Reports, resolver, notifier)
	sessions := session.NewManager(cfg.SessionTTL)
	tripSetter, _ := be.Reports.(store.TripInfoSetter)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:      svc,
		Sessions:     sessions,
		Identity:     be.Identity,
		Resolver:     resolver,
		Cities:       be.Cities,
		Flights:      be.Flights,
		TripInfo:     tripSetter,
		Logger:       logger.WithComponent(applog.ComponentHTTP),
		PreviewQuiet: cfg.RatePreviewQuiet,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting tripreport server",
		"port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
