package appointments

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() BookingRequest {
	return BookingRequest{
		FullName:        "  Ana   María Pérez ",
		Email:           "Ana@Example.com",
		WhatsApp:        "0414-1234567",
		AppointmentDate: "2026-03-02",
		AppointmentTime: "9:00",
		PaymentMethod:   MethodZelle,
	}
}

func TestBookingRequestNormalize(t *testing.T) {
	got, err := validRequest().Normalize("VE")
	require.NoError(t, err)
	assert.Equal(t, "Ana María Pérez", got.FullName)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "+584141234567", got.WhatsApp)
	assert.Equal(t, "09:00", got.AppointmentTime)
	assert.Equal(t, SessionStandard, got.SessionType)
}

func TestBookingRequestInternationalPhone(t *testing.T) {
	req := validRequest()
	req.WhatsApp = "+1 650 253 0000"
	got, err := req.Normalize("VE")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got.WhatsApp)
}

func TestBookingRequestValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*BookingRequest)
		field string
	}{
		{"missing name", func(r *BookingRequest) { r.FullName = "  " }, "full_name"},
		{"missing email", func(r *BookingRequest) { r.Email = "" }, "email"},
		{"email without domain dot", func(r *BookingRequest) { r.Email = "ana@localhost" }, "email"},
		{"email with display name", func(r *BookingRequest) { r.Email = "Ana <ana@example.com>" }, "email"},
		{"missing whatsapp", func(r *BookingRequest) { r.WhatsApp = "" }, "whatsapp"},
		{"bad whatsapp", func(r *BookingRequest) { r.WhatsApp = "12" }, "whatsapp"},
		{"bad date", func(r *BookingRequest) { r.AppointmentDate = "02/03/2026" }, "appointment_date"},
		{"bad time", func(r *BookingRequest) { r.AppointmentTime = "noon" }, "appointment_time"},
		{"missing method", func(r *BookingRequest) { r.PaymentMethod = "" }, "payment_method"},
		{"unknown method", func(r *BookingRequest) { r.PaymentMethod = "cash" }, "payment_method"},
		{"unknown session", func(r *BookingRequest) { r.SessionType = "marathon" }, "session_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.edit(&req)
			_, err := req.Normalize("VE")
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusAwaitingProof))
	assert.True(t, CanTransition(StatusAwaitingProof, StatusAwaitingProof))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition(StatusConfirmed, StatusAwaitingProof))
}

func TestPaymentMethodKinds(t *testing.T) {
	assert.True(t, MethodPayPal.IsGateway())
	assert.True(t, MethodCard.IsGateway())
	assert.False(t, MethodZelle.IsGateway())
	assert.False(t, PaymentMethod("cash").Valid())
}

func TestParseStatuses(t *testing.T) {
	assert.Equal(t, []Status{StatusPending, StatusConfirmed}, ParseStatuses("pending, confirmed,bogus"))
	assert.Nil(t, ParseStatuses(""))
}
