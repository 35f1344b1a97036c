package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/pkg/logging"
)

type stubGateway struct {
	name       string
	createErr  error
	captureErr error
	completed  bool
	captures   int
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &Checkout{PaymentID: "PAY-" + req.BookingID.String()[:8], RedirectURL: "https://gateway.example/approve"}, nil
}

func (g *stubGateway) Capture(_ context.Context, paymentID, payerID string) (*Capture, error) {
	g.captures++
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return &Capture{PaymentID: paymentID, PayerID: payerID, Completed: g.completed}, nil
}

type staticZelle string

func (z staticZelle) ZelleEmail(context.Context) (string, error) { return string(z), nil }

type quote struct{}

func (quote) QuoteCents(context.Context, string) (int64, string, error) { return 5000, "USD", nil }

// flakyRepo fails the first failUpdates calls to Update.
type flakyRepo struct {
	*appointments.MemoryRepository
	failUpdates int
}

func (r *flakyRepo) Update(ctx context.Context, appt *appointments.Appointment, expected appointments.Status) error {
	if r.failUpdates > 0 {
		r.failUpdates--
		return errors.New("db unavailable")
	}
	return r.MemoryRepository.Update(ctx, appt, expected)
}

type handlerFixture struct {
	handler  *Handler
	bookings *appointments.Service
	repo     appointments.Repository
	paypal   *stubGateway
	card     *stubGateway
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	return newHandlerFixtureWithRepo(t, appointments.NewMemoryRepository())
}

type fixtureRepo interface {
	appointments.Repository
	schedule.HoldSource
}

func newHandlerFixtureWithRepo(t *testing.T, repo fixtureRepo) *handlerFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := schedule.NewWindow(time.UTC, 2).WithClock(func() time.Time { return now })
	sched := schedule.NewService(schedule.NewMemoryStore(), repo, window, logging.Discard())
	bookings := appointments.NewService(repo, sched, logging.Discard()).
		WithPricing(quote{}).
		WithClock(func() time.Time { return now })

	paypal := &stubGateway{name: "paypal", completed: true}
	card := &stubGateway{name: "card", completed: true}
	h := NewHandler(bookings, staticZelle("pagos@example.com"), "https://site.example/", logging.Discard()).
		WithGateway(appointments.MethodPayPal, paypal).
		WithGateway(appointments.MethodCard, card)
	return &handlerFixture{handler: h, bookings: bookings, repo: repo, paypal: paypal, card: card}
}

func bookingBody(t *testing.T, slot string) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"full_name":        "Ana Pérez",
		"email":            "Ana@Example.com",
		"whatsapp":         "0414-1234567",
		"appointment_date": "2026-03-02",
		"appointment_time": slot,
	})
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func postJSON(t *testing.T, fn http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case *bytes.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(http.MethodPost, "/", reader)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestCreatePayPalOrder(t *testing.T) {
	f := newHandlerFixture(t)
	rec := postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "09:00"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp paypalOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://gateway.example/approve", resp.ApprovalURL)

	appt, err := f.repo.Get(context.Background(), resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusPending, appt.Status)
	assert.Equal(t, appointments.MethodPayPal, appt.PaymentMethod)
	assert.Equal(t, "PAY-"+resp.BookingID.String()[:8], appt.GatewayPaymentID)
}

func TestCreateCardCheckoutGatewayFailureReleasesSlot(t *testing.T) {
	f := newHandlerFixture(t)
	f.card.createErr = errors.New("boom")

	rec := postJSON(t, f.handler.CreateCardCheckout, bookingBody(t, "09:00"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	list, err := f.repo.List(context.Background(), appointments.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, appointments.StatusCancelled, list[0].Status)

	// the slot is free again
	f.card.createErr = nil
	rec = postJSON(t, f.handler.CreateCardCheckout, bookingBody(t, "09:00"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateBookingReleasesSlotWhenPaymentNotRecorded(t *testing.T) {
	repo := &flakyRepo{MemoryRepository: appointments.NewMemoryRepository(), failUpdates: 1}
	f := newHandlerFixtureWithRepo(t, repo)

	rec := postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "09:00"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	list, err := f.repo.List(context.Background(), appointments.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, appointments.StatusCancelled, list[0].Status)
	assert.Empty(t, list[0].GatewayPaymentID)

	// no payment id was stored, so nothing may be captured for it
	rec = postJSON(t, f.handler.ConfirmPayPalPayment, ConfirmPaymentRequest{PaymentID: "ANY", BookingID: list[0].ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.paypal.captures)

	rec = postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "09:00"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateBookingRejectsTakenSlot(t *testing.T) {
	f := newHandlerFixture(t)
	require.Equal(t, http.StatusOK, postJSON(t, f.handler.CreateZelleBooking, bookingBody(t, "10:00")).Code)

	rec := postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "10:00"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newHandlerFixture(t)
	rec := postJSON(t, f.handler.CreatePayPalOrder, map[string]string{"full_name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	f.handler.CreateZelleBooking(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWithoutGateway(t *testing.T) {
	f := newHandlerFixture(t)
	delete(f.handler.gateways, appointments.MethodCard)
	rec := postJSON(t, f.handler.CreateCardCheckout, bookingBody(t, "09:00"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConfirmPayPalPayment(t *testing.T) {
	f := newHandlerFixture(t)
	rec := postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "09:00"))
	var created paypalOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	paymentID := "PAY-" + created.BookingID.String()[:8]

	confirm := ConfirmPaymentRequest{PaymentID: paymentID, PayerID: "PAYER1", BookingID: created.BookingID.String()}
	rec = postJSON(t, f.handler.ConfirmPayPalPayment, confirm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ConfirmPaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, appointments.StatusConfirmed, resp.Appointment.Status)
	assert.Equal(t, "PAYER1", resp.Appointment.PayerID)

	// repeat confirmation does not capture again
	rec = postJSON(t, f.handler.ConfirmPayPalPayment, confirm)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.paypal.captures)
}

func TestConfirmPaymentFailures(t *testing.T) {
	f := newHandlerFixture(t)
	rec := postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "09:00"))
	var created paypalOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	paymentID := "PAY-" + created.BookingID.String()[:8]

	t.Run("mismatched payment", func(t *testing.T) {
		rec := postJSON(t, f.handler.ConfirmPayPalPayment, ConfirmPaymentRequest{PaymentID: "OTHER", BookingID: created.BookingID.String()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("wrong method endpoint", func(t *testing.T) {
		rec := postJSON(t, f.handler.ConfirmCardPayment, ConfirmPaymentRequest{PaymentID: paymentID, BookingID: created.BookingID.String()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("unknown booking", func(t *testing.T) {
		rec := postJSON(t, f.handler.ConfirmPayPalPayment, ConfirmPaymentRequest{PaymentID: paymentID, BookingID: uuid.NewString()})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("bad booking id", func(t *testing.T) {
		rec := postJSON(t, f.handler.ConfirmPayPalPayment, ConfirmPaymentRequest{PaymentID: paymentID, BookingID: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("capture error", func(t *testing.T) {
		f.paypal.captureErr = errors.New("timeout")
		defer func() { f.paypal.captureErr = nil }()
		rec := postJSON(t, f.handler.ConfirmPayPalPayment, ConfirmPaymentRequest{PaymentID: paymentID, BookingID: created.BookingID.String()})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
	t.Run("not completed", func(t *testing.T) {
		f.paypal.completed = false
		defer func() { f.paypal.completed = true }()
		rec := postJSON(t, f.handler.ConfirmPayPalPayment, ConfirmPaymentRequest{PaymentID: paymentID, BookingID: created.BookingID.String()})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	appt, err := f.repo.Get(context.Background(), created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusPending, appt.Status)
}

func TestConfirmCancelledBookingDoesNotCapture(t *testing.T) {
	f := newHandlerFixture(t)
	rec := postJSON(t, f.handler.CreatePayPalOrder, bookingBody(t, "09:00"))
	var created paypalOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	_, err := f.bookings.Cancel(context.Background(), created.BookingID, "expired")
	require.NoError(t, err)

	confirm := ConfirmPaymentRequest{PaymentID: "PAY-" + created.BookingID.String()[:8], BookingID: created.BookingID.String()}
	rec = postJSON(t, f.handler.ConfirmPayPalPayment, confirm)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, f.paypal.captures)

	appt, err := f.repo.Get(context.Background(), created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, appt.Status)
}

func TestCreateZelleBooking(t *testing.T) {
	f := newHandlerFixture(t)
	rec := postJSON(t, f.handler.CreateZelleBooking, bookingBody(t, "11:00"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ZelleBookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pagos@example.com", resp.ZelleEmail)
	assert.Equal(t, "$50.00", resp.Amount)

	appt, err := f.repo.Get(context.Background(), resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, appointments.MethodZelle, appt.PaymentMethod)
	assert.Equal(t, appointments.StatusPending, appt.Status)
	assert.Equal(t, "+584141234567", appt.WhatsApp)
}

func TestReturnURL(t *testing.T) {
	f := newHandlerFixture(t)
	id := uuid.MustParse("7c1e1c0e-0000-4000-8000-000000000001")
	assert.Equal(t,
		"https://site.example/payment-success?booking_id=7c1e1c0e-0000-4000-8000-000000000001&method=paypal",
		f.handler.returnURL(id, appointments.MethodPayPal))
	assert.Equal(t,
		"https://site.example/payment-success?booking_id=7c1e1c0e-0000-4000-8000-000000000001&method=card&session_id={CHECKOUT_SESSION_ID}",
		f.handler.returnURL(id, appointments.MethodCard))
}
