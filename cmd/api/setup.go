package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/psicoliz/booking/cmd/mainconfig"
	"github.com/psicoliz/booking/internal/appointments"
	appconfig "github.com/psicoliz/booking/internal/config"
	"github.com/psicoliz/booking/internal/notify"
	"github.com/psicoliz/booking/internal/observability/metrics"
	"github.com/psicoliz/booking/internal/payments"
	"github.com/psicoliz/booking/internal/proofs"
	"github.com/psicoliz/booking/internal/reports"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/settings"
	"github.com/psicoliz/booking/pkg/logging"
)

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// connectPostgresPool returns nil when no database is configured or reachable.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// storage is the persistence the API runs on. Without a pool the in-memory
// stores are used and reports are computed from the appointment listing.
type storage struct {
	appointments appointments.Repository
	holds        schedule.HoldSource
	schedule     schedule.Store
	reports      reports.Source
	reportsDB    *sql.DB
}

func setupStorage(pool *pgxpool.Pool, logger *logging.Logger) storage {
	if pool == nil {
		logger.Warn("DATABASE_URL not set or unreachable, using in-memory storage")
		repo := appointments.NewMemoryRepository()
		return storage{
			appointments: repo,
			holds:        repo,
			schedule:     schedule.NewMemoryStore(),
			reports:      reports.NewListingSource(repo),
		}
	}
	repo := appointments.NewPGRepository(pool)
	db := stdlib.OpenDBFromPool(pool)
	return storage{
		appointments: repo,
		holds:        repo,
		schedule:     schedule.NewPGStore(pool),
		reports:      reports.NewRepository(db),
		reportsDB:    db,
	}
}

func connectRedis(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

func pricingDefaults(cfg *appconfig.Config) settings.PricingConfig {
	return settings.PricingConfig{
		ConsultationPriceCents: int64(cfg.ConsultationPriceCents),
		HalfHourExtensionCents: int64(cfg.HalfHourExtensionCents),
		FullHourExtensionCents: int64(cfg.FullHourExtensionCents),
		Currency:               cfg.Currency,
		ZelleEmail:             cfg.ZelleEmail,
	}
}

// setupGateways registers the configured payment gateways. With
// ALLOW_FAKE_PAYMENTS any unconfigured method falls back to the fake gateway.
func setupGateways(cfg *appconfig.Config, h *payments.Handler, logger *logging.Logger) {
	paypalReady := cfg.PayPalClientID != "" && cfg.PayPalClientSecret != ""
	switch {
	case paypalReady:
		h.WithGateway(appointments.MethodPayPal,
			payments.NewPayPalGateway(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalSandbox, logger).
				WithBaseURL(cfg.PayPalBaseURL))
	case cfg.AllowFakePayments:
		h.WithGateway(appointments.MethodPayPal, payments.NewFakeGateway("paypal", logger))
	default:
		logger.Warn("paypal not configured, paypal bookings are disabled")
	}

	switch {
	case cfg.StripeSecretKey != "":
		h.WithGateway(appointments.MethodCard, payments.NewStripeGateway(cfg.StripeSecretKey, logger))
	case cfg.AllowFakePayments:
		h.WithGateway(appointments.MethodCard, payments.NewFakeGateway("card", logger))
	default:
		logger.Warn("stripe not configured, card bookings are disabled")
	}
}

func setupEmail(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	opts := notify.SenderOptions{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		},
		SMTP: notify.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		},
		SESConfig: notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		},
	}
	if awsCfg != nil {
		opts.SES = sesv2.NewFromConfig(*awsCfg)
	}
	return notify.NewSender(opts, logger)
}

func setupProofStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *proofs.Store {
	if awsCfg == nil || cfg.ProofBucket == "" {
		logger.Warn("PROOF_BUCKET not configured, payment proofs are only emailed")
		return proofs.NewStore(nil, nil, "", cfg.ProofURLTTL, logger)
	}
	client := mainconfig.NewS3Client(*awsCfg, cfg)
	return proofs.NewStore(client, s3.NewPresignClient(client), cfg.ProofBucket, cfg.ProofURLTTL, logger)
}
