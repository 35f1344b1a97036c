package settings

import (
	"errors"
	"net/http"
	"strings"

	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/pkg/logging"
)

// Handler serves pricing settings to the public site and the admin console.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// PricingConfigResponse is returned by GET /api/pricing-config.
type PricingConfigResponse struct {
	ConsultationPrice float64 `json:"consultation_price"`
	HalfHourExtension float64 `json:"half_hour_extension"`
	FullHourExtension float64 `json:"full_hour_extension"`
	Currency          string  `json:"currency"`
	Tiers             []Tier  `json:"tiers"`
}

// PricingConfig handles GET /api/pricing-config.
func (h *Handler) PricingConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, PricingConfigResponse{
		ConsultationPrice: ToAmount(cfg.ConsultationPriceCents),
		HalfHourExtension: ToAmount(cfg.HalfHourExtensionCents),
		FullHourExtension: ToAmount(cfg.FullHourExtensionCents),
		Currency:          cfg.Currency,
		Tiers:             cfg.Tiers(),
	})
}

// ZelleConfigResponse is returned by GET /api/zelle-config.
type ZelleConfigResponse struct {
	ZelleEmail string `json:"zelle_email"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// ZelleConfig handles GET /api/zelle-config.
func (h *Handler) ZelleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, ZelleConfigResponse{
		ZelleEmail: cfg.ZelleEmail,
		Amount:     FormatAmount(cfg.ConsultationPriceCents, cfg.Currency),
		Currency:   cfg.Currency,
	})
}

// GetSettings handles GET /api/admin/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}

// UpdateSettingsRequest is a partial update of the pricing config.
type UpdateSettingsRequest struct {
	ConsultationPrice *float64 `json:"consultation_price,omitempty"`
	HalfHourExtension *float64 `json:"half_hour_extension,omitempty"`
	FullHourExtension *float64 `json:"full_hour_extension,omitempty"`
	Currency          *string  `json:"currency,omitempty"`
	ZelleEmail        *string  `json:"zelle_email,omitempty"`
}

// UpdateSettings handles PUT /api/admin/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cfg, ok := h.load(w, r)
	if !ok {
		return
	}

	if req.ConsultationPrice != nil {
		cfg.ConsultationPriceCents = ToCents(*req.ConsultationPrice)
	}
	if req.HalfHourExtension != nil {
		cfg.HalfHourExtensionCents = ToCents(*req.HalfHourExtension)
	}
	if req.FullHourExtension != nil {
		cfg.FullHourExtensionCents = ToCents(*req.FullHourExtension)
	}
	if req.Currency != nil {
		cfg.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.ZelleEmail != nil {
		cfg.ZelleEmail = strings.TrimSpace(*req.ZelleEmail)
	}

	saved, err := h.store.Set(r.Context(), cfg)
	if errors.Is(err, ErrInvalidSettings) {
		respond.Error(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), ErrInvalidSettings.Error()+": "))
		return
	}
	if err != nil {
		h.logger.Error("failed to save settings", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	h.logger.Info("pricing settings updated",
		"consultation_price_cents", saved.ConsultationPriceCents,
		"currency", saved.Currency)
	respond.JSON(w, http.StatusOK, saved)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (PricingConfig, bool) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load settings")
		return PricingConfig{}, false
	}
	return cfg, true
}
