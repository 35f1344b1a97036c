package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const pricingKey = "booking:settings:pricing"

// Store keeps the pricing config in Redis.
type Store struct {
	redis    *redis.Client
	defaults PricingConfig
	tracer   trace.Tracer
	now      func() time.Time
}

// NewStore creates a settings store. defaults is returned until the admin saves.
func NewStore(redisClient *redis.Client, defaults PricingConfig) *Store {
	if redisClient == nil {
		panic("settings: redis client required")
	}
	if defaults.Currency == "" {
		defaults.Currency = "USD"
	}
	return &Store{
		redis:    redisClient,
		defaults: defaults,
		tracer:   otel.Tracer("booking.internal.settings"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithTracer overrides the tracer used for Redis spans.
func (s *Store) WithTracer(tracer trace.Tracer) *Store {
	if tracer != nil {
		s.tracer = tracer
	}
	return s
}

// Defaults returns the configured fallback pricing.
func (s *Store) Defaults() PricingConfig {
	return s.defaults
}

// Get returns the stored pricing config, or the defaults.
func (s *Store) Get(ctx context.Context) (PricingConfig, error) {
	ctx, span := s.tracer.Start(ctx, "settings.get_pricing")
	defer span.End()

	data, err := s.redis.Get(ctx, pricingKey).Bytes()
	if err == redis.Nil {
		return s.defaults, nil
	}
	if err != nil {
		span.RecordError(err)
		return PricingConfig{}, fmt.Errorf("settings: get pricing: %w", err)
	}
	var cfg PricingConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return PricingConfig{}, fmt.Errorf("settings: unmarshal pricing: %w", err)
	}
	return cfg, nil
}

// Set validates and stores cfg.
func (s *Store) Set(ctx context.Context, cfg PricingConfig) (PricingConfig, error) {
	if err := cfg.Validate(); err != nil {
		return PricingConfig{}, err
	}
	ctx, span := s.tracer.Start(ctx, "settings.set_pricing")
	defer span.End()

	cfg.UpdatedAt = s.now()
	data, err := json.Marshal(cfg)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("settings: marshal pricing: %w", err)
	}
	if err := s.redis.Set(ctx, pricingKey, data, 0).Err(); err != nil {
		span.RecordError(err)
		return PricingConfig{}, fmt.Errorf("settings: set pricing: %w", err)
	}
	return cfg, nil
}

// QuoteCents prices a session tier using the current config.
func (s *Store) QuoteCents(ctx context.Context, sessionType string) (int64, string, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return 0, "", err
	}
	return cfg.PriceFor(sessionType), cfg.Currency, nil
}

// ZelleEmail returns the address clients send manual transfers to.
func (s *Store) ZelleEmail(ctx context.Context) (string, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return cfg.ZelleEmail, nil
}
