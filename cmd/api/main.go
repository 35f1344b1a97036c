package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/psicoliz/booking/cmd/mainconfig"
	"github.com/psicoliz/booking/internal/api/router"
	"github.com/psicoliz/booking/internal/appointments"
	appconfig "github.com/psicoliz/booking/internal/config"
	httpmiddleware "github.com/psicoliz/booking/internal/http/middleware"
	"github.com/psicoliz/booking/internal/notify"
	"github.com/psicoliz/booking/internal/payments"
	"github.com/psicoliz/booking/internal/proofs"
	"github.com/psicoliz/booking/internal/reports"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/settings"
	"github.com/psicoliz/booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.Timezone,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	store := setupStorage(pool, logger)
	if store.reportsDB != nil {
		defer func() { _ = store.reportsDB.Close() }()
	}

	rdb := connectRedis(cfg)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("failed to load AWS config, S3 and SES disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	metricsHandler, bookingMetrics := setupMetrics()
	loc := cfg.Location()

	settingsStore := settings.NewStore(rdb, pricingDefaults(cfg))
	window := schedule.NewWindow(loc, cfg.BookingHorizonMonths)
	scheduleService := schedule.NewService(store.schedule, store.holds, window, logger)

	notifier := notify.NewService(setupEmail(cfg, awsCfg, logger), cfg.PractitionerName, cfg.PractitionerEmail, logger).
		WithAdminURL(cfg.FrontendURL + "/admin")

	bookings := appointments.NewService(store.appointments, scheduleService, logger).
		WithPricing(settingsStore).
		WithNotifier(notifier).
		WithMetrics(bookingMetrics).
		WithPhoneRegion(cfg.DefaultPhoneRegion)

	paymentsHandler := payments.NewHandler(bookings, settingsStore, cfg.FrontendURL, logger).
		WithMetrics(bookingMetrics)
	setupGateways(cfg, paymentsHandler, logger)

	proofsHandler := proofs.NewHandler(bookings, setupProofStore(cfg, awsCfg, logger), logger).
		WithNotifier(notifier).
		WithMetrics(bookingMetrics)

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD not set, admin endpoints will reject every request")
	}

	creds := httpmiddleware.AdminCredentials{
		Username:     cfg.AdminUsername,
		Password:     cfg.AdminPassword,
		PasswordHash: cfg.AdminPasswordHash,
	}
	r := router.New(&router.Config{
		Logger:             logger,
		Schedule:           schedule.NewHandler(scheduleService, logger),
		Settings:           settings.NewHandler(settingsStore, logger),
		Payments:           paymentsHandler,
		Proofs:             proofsHandler,
		Appointments:       appointments.NewAdminHandler(bookings, logger),
		Reports:            reports.NewHandler(store.reports, loc, logger),
		AdminCredentials:   creds,
		RateLimiter:        httpmiddleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	sweeper, err := appointments.NewSweeper(bookings, cfg.PendingBookingTTL, cfg.PendingSweepInterval, logger)
	if err != nil {
		return fmt.Errorf("create sweeper: %w", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()
		return sweeper.Stop()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
