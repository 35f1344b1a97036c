package appointments

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/psicoliz/booking/internal/schedule"
)

// BookingRequest is the public payload that creates an appointment.
type BookingRequest struct {
	FullName        string        `json:"full_name"`
	Email           string        `json:"email"`
	WhatsApp        string        `json:"whatsapp"`
	AppointmentDate string        `json:"appointment_date"`
	AppointmentTime string        `json:"appointment_time"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	SessionType     SessionType   `json:"session_type,omitempty"`
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Normalize validates the request and returns a cleaned copy. Phone numbers
// without a country code are read in defaultRegion and returned as E.164.
func (r BookingRequest) Normalize(defaultRegion string) (BookingRequest, error) {
	out := r
	out.FullName = strings.Join(strings.Fields(r.FullName), " ")
	if out.FullName == "" {
		return out, invalid("full_name", "required")
	}

	out.Email = strings.TrimSpace(r.Email)
	if out.Email == "" {
		return out, invalid("email", "required")
	}
	addr, err := mail.ParseAddress(out.Email)
	if err != nil || addr.Address != out.Email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return out, invalid("email", "invalid address")
	}
	out.Email = strings.ToLower(addr.Address)

	phone, err := NormalizeWhatsApp(r.WhatsApp, defaultRegion)
	if err != nil {
		return out, err
	}
	out.WhatsApp = phone

	if _, err := schedule.ParseDate(r.AppointmentDate, nil); err != nil {
		return out, invalid("appointment_date", "expected YYYY-MM-DD")
	}
	out.AppointmentDate = strings.TrimSpace(r.AppointmentDate)
	if out.AppointmentTime, err = schedule.NormalizeTime(r.AppointmentTime); err != nil {
		return out, invalid("appointment_time", "expected HH:MM")
	}

	if !r.PaymentMethod.Valid() {
		return out, invalid("payment_method", "must be paypal, card or zelle")
	}
	if out.SessionType == "" {
		out.SessionType = SessionStandard
	}
	if !out.SessionType.Valid() {
		return out, invalid("session_type", "must be standard, extended or long")
	}
	return out, nil
}

// NormalizeWhatsApp parses a phone number and formats it as E.164.
func NormalizeWhatsApp(value, defaultRegion string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid("whatsapp", "required")
	}
	if defaultRegion == "" {
		defaultRegion = "VE"
	}
	num, err := phonenumbers.Parse(value, strings.ToUpper(defaultRegion))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", invalid("whatsapp", "invalid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
