package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	FrontendURL   string
	LogLevel      string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration

	// Scheduling
	Timezone             string
	BookingHorizonMonths int
	DefaultPhoneRegion   string
	PendingBookingTTL    time.Duration
	PendingSweepInterval time.Duration

	// Admin basic auth
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string

	// Payments
	PayPalClientID     string
	PayPalClientSecret string
	PayPalBaseURL      string
	PayPalSandbox      bool
	StripeSecretKey    string
	AllowFakePayments  bool
	Currency           string

	// Pricing defaults, used until the admin saves settings
	ConsultationPriceCents int
	HalfHourExtensionCents int
	FullHourExtensionCents int
	ZelleEmail             string

	// Practitioner
	PractitionerName  string
	PractitionerEmail string

	// Email
	EmailProvider    string
	EmailFromAddress string
	EmailFromName    string
	SendGridAPIKey   string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ProofBucket         string
	ProofURLTTL         time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:   strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRequests:  getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:    getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),

		Timezone:             getEnv("TIMEZONE", "America/Caracas"),
		BookingHorizonMonths: getEnvAsInt("BOOKING_HORIZON_MONTHS", 2),
		DefaultPhoneRegion:   strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "VE")),
		PendingBookingTTL:    getEnvAsDuration("PENDING_BOOKING_TTL", 2*time.Hour),
		PendingSweepInterval: getEnvAsDuration("PENDING_SWEEP_INTERVAL", 15*time.Minute),

		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalBaseURL:      getEnv("PAYPAL_BASE_URL", ""),
		PayPalSandbox:      getEnvAsBool("PAYPAL_SANDBOX", true),
		StripeSecretKey:    getEnv("STRIPE_SECRET_KEY", ""),
		AllowFakePayments:  getEnvAsBool("ALLOW_FAKE_PAYMENTS", false),
		Currency:           strings.ToUpper(getEnv("CURRENCY", "USD")),

		ConsultationPriceCents: getEnvAsInt("CONSULTATION_PRICE_CENTS", 5000),
		HalfHourExtensionCents: getEnvAsInt("HALF_HOUR_EXTENSION_CENTS", 2500),
		FullHourExtensionCents: getEnvAsInt("FULL_HOUR_EXTENSION_CENTS", 4500),
		ZelleEmail:             getEnv("ZELLE_EMAIL", ""),

		PractitionerName:  getEnv("PRACTITIONER_NAME", ""),
		PractitionerEmail: getEnv("PRACTITIONER_EMAIL", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", ""),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ProofBucket:         getEnv("PROOF_BUCKET", ""),
		ProofURLTTL:         getEnvAsDuration("PROOF_URL_TTL", 15*time.Minute),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
