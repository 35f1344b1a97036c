package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/psicoliz/booking/internal/appointments"
	httpmiddleware "github.com/psicoliz/booking/internal/http/middleware"
	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/internal/payments"
	"github.com/psicoliz/booking/internal/proofs"
	"github.com/psicoliz/booking/internal/reports"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/internal/settings"
	"github.com/psicoliz/booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Schedule           *schedule.Handler
	Settings           *settings.Handler
	Payments           *payments.Handler
	Proofs             *proofs.Handler
	Appointments       *appointments.AdminHandler
	Reports            *reports.Handler
	AdminCredentials   httpmiddleware.AdminCredentials
	RateLimiter        *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", health)

		// Public booking surface
		api.Group(func(public chi.Router) {
			if cfg.Schedule != nil {
				public.Get("/available-slots/{date}", cfg.Schedule.AvailableSlots)
			}
			if cfg.Settings != nil {
				public.Get("/pricing-config", cfg.Settings.PricingConfig)
				public.Get("/zelle-config", cfg.Settings.ZelleConfig)
			}
		})

		// Writes that create bookings or accept uploads are rate limited per IP
		api.Group(func(writes chi.Router) {
			if cfg.RateLimiter != nil {
				writes.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			if cfg.Payments != nil {
				writes.Post("/create-paypal-order", cfg.Payments.CreatePayPalOrder)
				writes.Post("/create-card-checkout", cfg.Payments.CreateCardCheckout)
				writes.Post("/create-zelle-booking", cfg.Payments.CreateZelleBooking)
				writes.Post("/confirm-paypal-payment", cfg.Payments.ConfirmPayPalPayment)
				writes.Post("/confirm-card-payment", cfg.Payments.ConfirmCardPayment)
			}
			if cfg.Proofs != nil {
				writes.Post("/upload-zelle-proof", cfg.Proofs.Upload)
			}
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminBasicAuth(cfg.AdminCredentials))
			if cfg.Reports != nil {
				cfg.Reports.Register(admin)
			}
			if cfg.Appointments != nil {
				cfg.Appointments.Register(admin)
			}
			if cfg.Proofs != nil {
				cfg.Proofs.Register(admin)
			}
			if cfg.Settings != nil {
				admin.Get("/settings", cfg.Settings.GetSettings)
				admin.Put("/settings", cfg.Settings.UpdateSettings)
			}
			if cfg.Schedule != nil {
				admin.Mount("/schedule", cfg.Schedule.AdminRoutes())
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
