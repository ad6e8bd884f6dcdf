package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/polieventos/ticketing/internal/app"
	"github.com/polieventos/ticketing/internal/auth"
	"github.com/polieventos/ticketing/internal/clock"
	"github.com/polieventos/ticketing/internal/config"
	"github.com/polieventos/ticketing/internal/notify"
	"github.com/polieventos/ticketing/internal/obs"
	"github.com/polieventos/ticketing/internal/storage/postgres"
	transporthttp "github.com/polieventos/ticketing/internal/transport/http"
	"github.com/polieventos/ticketing/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var skipMigrations bool

	flagSet := pflag.NewFlagSet("ticketing-api", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file (default: $TICKETING_CONFIG)")
	flagSet.BoolVar(&skipMigrations, "skip-migrations", false, "do not apply schema migrations on startup")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := obs.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if skipMigrations {
		logger.Warn("skipping schema migrations")
	} else if err := migrations.Apply(startupCtx, pool); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	var sender notify.Sender
	if cfg.Notify.ResendAPIKey != "" {
		sender = notify.NewResendSender(cfg.Notify.ResendAPIKey, &http.Client{Timeout: cfg.Notify.SendTimeout})
	} else {
		logger.Warn("resend api key not set, ticket emails will only be logged")
		sender = notify.NewLogSender(logger)
	}
	dispatcher := notify.NewDispatcher(
		notify.NewPDFRenderer(cfg.Notify.Brand),
		sender,
		cfg.Notify.MailFrom,
		logger,
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithSendTimeout(cfg.Notify.SendTimeout),
	)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher.Start(workerCtx)

	clk := clock.NewSystem()
	zoneRepo := postgres.NewZoneRepository(pool, cfg.LockTimeout)

	purchaseSvc := app.NewPurchaseService(
		postgres.NewPurchaseRepository(pool, cfg.LockTimeout),
		dispatcher,
		clk,
		app.WithMaxQuantity(cfg.MaxTicketsPerPurchase),
		app.WithPurchaseLogger(logger),
	)
	redemptionSvc := app.NewRedemptionService(postgres.NewRedemptionRepository(pool, cfg.LockTimeout), clk, logger)
	zoneSvc := app.NewZoneService(zoneRepo, auth.NewBcryptVerifier(postgres.NewCredentialRepository(pool)), clk)
	inventorySvc := app.NewInventoryService(zoneRepo)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Purchases:       purchaseSvc,
		Redemptions:     redemptionSvc,
		Zones:           zoneSvc,
		Inventory:       inventorySvc,
		Verifier:        auth.NewVerifier(cfg.JWTSecret),
		DB:              pool,
		PurchaseTimeout: cfg.PurchaseTimeout,
		CORSOrigins:     cfg.CORSOrigins,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening", "addr", cfg.HTTPAddr)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown failed", "err", err)
	}

	dispatcher.CloseIntake()
	if !dispatcher.Drain(shutdownCtx) {
		logger.Warn("notification queue not drained before deadline")
	}
	enqueued, delivered, failed, depth := dispatcher.Metrics()
	logger.Info("server stopped",
		"notifications_enqueued", enqueued,
		"notifications_delivered", delivered,
		"notifications_failed", failed,
		"notifications_pending", depth,
	)
	return serveErr
}
