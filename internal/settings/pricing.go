package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
)

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("settings: invalid")

// PricingConfig is the practitioner's price list and manual payment contact.
// Amounts are kept in minor units; JSON uses decimal currency amounts.
type PricingConfig struct {
	ConsultationPriceCents int64
	HalfHourExtensionCents int64
	FullHourExtensionCents int64
	Currency               string
	ZelleEmail             string
	UpdatedAt              time.Time
}

// Tier describes one bookable session length.
type Tier struct {
	SessionType     string  `json:"session_type"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

type pricingJSON struct {
	ConsultationPrice float64    `json:"consultation_price"`
	HalfHourExtension float64    `json:"half_hour_extension"`
	FullHourExtension float64    `json:"full_hour_extension"`
	Currency          string     `json:"currency"`
	ZelleEmail        string     `json:"zelle_email"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func (p PricingConfig) MarshalJSON() ([]byte, error) {
	out := pricingJSON{
		ConsultationPrice: ToAmount(p.ConsultationPriceCents),
		HalfHourExtension: ToAmount(p.HalfHourExtensionCents),
		FullHourExtension: ToAmount(p.FullHourExtensionCents),
		Currency:          p.Currency,
		ZelleEmail:        p.ZelleEmail,
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = &p.UpdatedAt
	}
	return json.Marshal(out)
}

func (p *PricingConfig) UnmarshalJSON(data []byte) error {
	var in pricingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = PricingConfig{
		ConsultationPriceCents: ToCents(in.ConsultationPrice),
		HalfHourExtensionCents: ToCents(in.HalfHourExtension),
		FullHourExtensionCents: ToCents(in.FullHourExtension),
		Currency:               in.Currency,
		ZelleEmail:             in.ZelleEmail,
	}
	if in.UpdatedAt != nil {
		p.UpdatedAt = *in.UpdatedAt
	}
	return nil
}

// Validate checks the invariants the admin form enforces.
func (p PricingConfig) Validate() error {
	if p.ConsultationPriceCents <= 0 {
		return fmt.Errorf("%w: consultation_price must be greater than zero", ErrInvalidSettings)
	}
	if p.HalfHourExtensionCents < 0 || p.FullHourExtensionCents < 0 {
		return fmt.Errorf("%w: extensions cannot be negative", ErrInvalidSettings)
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		return fmt.Errorf("%w: currency must be a 3 letter code", ErrInvalidSettings)
	}
	if !looksLikeEmail(p.ZelleEmail) {
		return fmt.Errorf("%w: zelle_email must be a valid email", ErrInvalidSettings)
	}
	return nil
}

func looksLikeEmail(value string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	at := strings.LastIndex(addr.Address, "@")
	return at > 0 && strings.Contains(addr.Address[at+1:], ".")
}

// PriceFor returns the price of a session tier in minor units.
// Unknown tiers are priced as standard.
func (p PricingConfig) PriceFor(sessionType string) int64 {
	switch sessionType {
	case "extended":
		return p.ConsultationPriceCents + p.HalfHourExtensionCents
	case "long":
		return p.ConsultationPriceCents + p.FullHourExtensionCents
	default:
		return p.ConsultationPriceCents
	}
}

// Tiers lists the bookable session lengths with their prices.
func (p PricingConfig) Tiers() []Tier {
	return []Tier{
		{SessionType: "standard", DurationMinutes: 60, Price: ToAmount(p.PriceFor("standard"))},
		{SessionType: "extended", DurationMinutes: 90, Price: ToAmount(p.PriceFor("extended"))},
		{SessionType: "long", DurationMinutes: 120, Price: ToAmount(p.PriceFor("long"))},
	}
}

// ToCents converts a decimal amount to minor units.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ToAmount converts minor units to a decimal amount.
func ToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// FormatAmount renders cents for display, e.g. "$50.00".
func FormatAmount(cents int64, currency string) string {
	value := fmt.Sprintf("%.2f", ToAmount(cents))
	if strings.EqualFold(currency, "USD") || currency == "" {
		return "$" + value
	}
	return value + " " + strings.ToUpper(currency)
}
