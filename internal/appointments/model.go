package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending       Status = "pending"
	StatusAwaitingProof Status = "awaiting_payment_proof"
	StatusConfirmed     Status = "confirmed"
	StatusCancelled     Status = "cancelled"
)

// HoldsSlot reports whether an appointment in this state occupies its slot.
func (s Status) HoldsSlot() bool {
	return s != StatusCancelled
}

// PaymentMethod is how the client pays for the session.
type PaymentMethod string

const (
	MethodPayPal PaymentMethod = "paypal"
	MethodCard   PaymentMethod = "card"
	MethodZelle  PaymentMethod = "zelle"
)

// Valid reports whether m is a supported method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPayPal, MethodCard, MethodZelle:
		return true
	}
	return false
}

// IsGateway reports whether the method finalizes through a redirect-based gateway.
func (m PaymentMethod) IsGateway() bool {
	return m == MethodPayPal || m == MethodCard
}

// SessionType selects the session length and therefore the price tier.
type SessionType string

const (
	SessionStandard SessionType = "standard" // 1h
	SessionExtended SessionType = "extended" // 1.5h
	SessionLong     SessionType = "long"     // 2h
)

func (s SessionType) Valid() bool {
	switch s {
	case SessionStandard, SessionExtended, SessionLong:
		return true
	}
	return false
}

var (
	ErrNotFound          = errors.New("appointments: not found")
	ErrSlotUnavailable   = errors.New("appointments: slot no longer available")
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
	ErrConflict          = errors.New("appointments: concurrent update")
	ErrPaymentMismatch   = errors.New("appointments: payment does not match booking")
	ErrWrongMethod       = errors.New("appointments: operation not valid for payment method")
)

// Appointment is one booked session.
type Appointment struct {
	ID               uuid.UUID     `json:"id"`
	Date             string        `json:"appointment_date"`
	Time             string        `json:"appointment_time"`
	FullName         string        `json:"full_name"`
	Email            string        `json:"email"`
	WhatsApp         string        `json:"whatsapp"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	SessionType      SessionType   `json:"session_type"`
	AmountCents      int64         `json:"amount_cents"`
	Currency         string        `json:"currency"`
	Status           Status        `json:"status"`
	GatewayPaymentID string        `json:"payment_id,omitempty"`
	PayerID          string        `json:"payer_id,omitempty"`
	ProofKey         string        `json:"-"`
	ProofFilename    string        `json:"proof_filename,omitempty"`
	ProofContentType string        `json:"proof_content_type,omitempty"`
	ConfirmedBy      string        `json:"confirmed_by,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	ConfirmedAt      *time.Time    `json:"confirmed_at,omitempty"`
	ProofUploadedAt  *time.Time    `json:"proof_uploaded_at,omitempty"`
}

// HasProof reports whether a payment proof image is stored.
func (a *Appointment) HasProof() bool {
	return a.ProofKey != ""
}

// ProofRef points at a stored payment proof image.
type ProofRef struct {
	Key         string
	Filename    string
	ContentType string
}

// ListFilter narrows admin listings. Zero value lists everything.
type ListFilter struct {
	Statuses []Status
	Limit    int
}

func (f ListFilter) matches(a Appointment) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if a.Status == s {
			return true
		}
	}
	return false
}
