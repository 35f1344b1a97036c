package payments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/http/respond"
	"github.com/psicoliz/booking/internal/observability/metrics"
	"github.com/psicoliz/booking/pkg/logging"
)

// ZelleAccount provides the address manual transfers go to.
type ZelleAccount interface {
	ZelleEmail(ctx context.Context) (string, error)
}

// Handler serves the public booking and payment confirmation endpoints.
type Handler struct {
	bookings    *appointments.Service
	gateways    map[appointments.PaymentMethod]Gateway
	zelle       ZelleAccount
	frontendURL string
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

func NewHandler(bookings *appointments.Service, zelle ZelleAccount, frontendURL string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		bookings:    bookings,
		gateways:    make(map[appointments.PaymentMethod]Gateway),
		zelle:       zelle,
		frontendURL: strings.TrimRight(strings.TrimSpace(frontendURL), "/"),
		logger:      logger,
	}
}

// WithGateway registers the gateway that takes payments for method.
func (h *Handler) WithGateway(method appointments.PaymentMethod, g Gateway) *Handler {
	if g != nil {
		h.gateways[method] = g
	}
	return h
}

func (h *Handler) WithMetrics(m *metrics.BookingMetrics) *Handler {
	h.metrics = m
	return h
}

type paypalOrderResponse struct {
	ApprovalURL string    `json:"approval_url"`
	BookingID   uuid.UUID `json:"booking_id"`
}

type cardCheckoutResponse struct {
	CheckoutURL string    `json:"checkout_url"`
	BookingID   uuid.UUID `json:"booking_id"`
}

// ZelleBookingResponse tells the client where to send the transfer.
type ZelleBookingResponse struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ZelleEmail string    `json:"zelle_email"`
	Amount     string    `json:"amount"`
	Message    string    `json:"message"`
}

// ConfirmPaymentRequest is posted after the gateway redirects back.
type ConfirmPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id"`
	BookingID string `json:"booking_id"`
}

// ConfirmPaymentResponse carries the confirmed appointment.
type ConfirmPaymentResponse struct {
	Message     string                    `json:"message"`
	Appointment *appointments.Appointment `json:"appointment"`
}

// CreatePayPalOrder handles POST /api/create-paypal-order.
func (h *Handler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	checkout, appt, ok := h.startGatewayBooking(w, r, appointments.MethodPayPal)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, paypalOrderResponse{ApprovalURL: checkout.RedirectURL, BookingID: appt.ID})
}

// CreateCardCheckout handles POST /api/create-card-checkout.
func (h *Handler) CreateCardCheckout(w http.ResponseWriter, r *http.Request) {
	checkout, appt, ok := h.startGatewayBooking(w, r, appointments.MethodCard)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, cardCheckoutResponse{CheckoutURL: checkout.RedirectURL, BookingID: appt.ID})
}

func (h *Handler) startGatewayBooking(w http.ResponseWriter, r *http.Request, method appointments.PaymentMethod) (*Checkout, *appointments.Appointment, bool) {
	gateway, ok := h.gateways[method]
	if !ok {
		respond.Error(w, http.StatusServiceUnavailable, "payment method unavailable")
		return nil, nil, false
	}
	var req appointments.BookingRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return nil, nil, false
	}
	req.PaymentMethod = method

	ctx := r.Context()
	appt, err := h.bookings.Create(ctx, req)
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to create booking", err)
		return nil, nil, false
	}

	checkout, err := timed(h.metrics, gateway, "create", func() (*Checkout, error) {
		return gateway.CreateCheckout(ctx, CheckoutRequest{
			BookingID:     appt.ID,
			AmountCents:   appt.AmountCents,
			Currency:      appt.Currency,
			Description:   fmt.Sprintf("Cita psicológica para %s - %s %s", appt.FullName, appt.Date, appt.Time),
			CustomerEmail: appt.Email,
			ReturnURL:     h.returnURL(appt.ID, method),
			CancelURL:     h.frontendURL + "/payment-cancel?booking_id=" + appt.ID.String(),
		})
	})
	if err != nil {
		h.logger.Error("gateway checkout failed", "gateway", gateway.Name(), "booking_id", appt.ID, "error", err)
		if _, cerr := h.bookings.Cancel(ctx, appt.ID, "gateway checkout failed"); cerr != nil {
			h.logger.Error("failed to release booking after gateway error", "booking_id", appt.ID, "error", cerr)
		}
		respond.Error(w, http.StatusBadGateway, "could not start payment, please try again")
		return nil, nil, false
	}
	if _, err := h.bookings.AttachGatewayPayment(ctx, appt.ID, checkout.PaymentID); err != nil {
		if _, cerr := h.bookings.Cancel(ctx, appt.ID, "gateway payment not recorded"); cerr != nil {
			h.logger.Error("failed to release booking after attach error", "booking_id", appt.ID, "error", cerr)
		}
		appointments.WriteError(w, h.logger, "failed to record payment", err)
		return nil, nil, false
	}
	return checkout, appt, true
}

func (h *Handler) returnURL(id uuid.UUID, method appointments.PaymentMethod) string {
	base := fmt.Sprintf("%s/payment-success?booking_id=%s&method=%s", h.frontendURL, id, method)
	if method == appointments.MethodCard {
		base += "&session_id=" + sessionPlaceholder
	}
	return base
}

// ConfirmPayPalPayment handles POST /api/confirm-paypal-payment.
func (h *Handler) ConfirmPayPalPayment(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, appointments.MethodPayPal)
}

// ConfirmCardPayment handles POST /api/confirm-card-payment.
func (h *Handler) ConfirmCardPayment(w http.ResponseWriter, r *http.Request) {
	h.confirm(w, r, appointments.MethodCard)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, method appointments.PaymentMethod) {
	gateway, ok := h.gateways[method]
	if !ok {
		respond.Error(w, http.StatusServiceUnavailable, "payment method unavailable")
		return
	}
	var req ConfirmPaymentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	bookingID, err := uuid.Parse(strings.TrimSpace(req.BookingID))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		respond.Error(w, http.StatusBadRequest, "payment_id is required")
		return
	}

	ctx := r.Context()
	appt, err := h.bookings.Get(ctx, bookingID)
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to load booking", err)
		return
	}
	if appt.PaymentMethod != method {
		appointments.WriteError(w, h.logger, "", appointments.ErrWrongMethod)
		return
	}
	if appt.GatewayPaymentID == "" || appt.GatewayPaymentID != paymentID {
		appointments.WriteError(w, h.logger, "", appointments.ErrPaymentMismatch)
		return
	}
	if appt.Status == appointments.StatusConfirmed {
		respond.JSON(w, http.StatusOK, ConfirmPaymentResponse{Message: "Payment already confirmed", Appointment: appt})
		return
	}
	// never capture money for a booking that can no longer be confirmed
	if !appointments.CanTransition(appt.Status, appointments.StatusConfirmed) {
		h.logger.Warn("refusing capture for inactive booking", "booking_id", bookingID, "status", appt.Status)
		appointments.WriteError(w, h.logger, "", appointments.ErrInvalidTransition)
		return
	}

	capture, err := timed(h.metrics, gateway, "capture", func() (*Capture, error) {
		return gateway.Capture(ctx, paymentID, strings.TrimSpace(req.PayerID))
	})
	if err != nil {
		h.logger.Error("gateway capture failed", "gateway", gateway.Name(), "booking_id", bookingID, "error", err)
		respond.Error(w, http.StatusBadGateway, "payment could not be verified, please retry")
		return
	}
	if !capture.Completed {
		h.logger.Warn("payment not completed", "gateway", gateway.Name(), "booking_id", bookingID, "state", capture.State)
		respond.Error(w, http.StatusBadRequest, ErrNotCompleted.Error())
		return
	}

	confirmed, err := h.bookings.ConfirmGatewayPayment(ctx, bookingID, paymentID, capture.PayerID)
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to confirm booking", err)
		return
	}
	respond.JSON(w, http.StatusOK, ConfirmPaymentResponse{Message: "Payment confirmed successfully", Appointment: confirmed})
}

// CreateZelleBooking handles POST /api/create-zelle-booking.
func (h *Handler) CreateZelleBooking(w http.ResponseWriter, r *http.Request) {
	var req appointments.BookingRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	req.PaymentMethod = appointments.MethodZelle

	ctx := r.Context()
	var zelleEmail string
	if h.zelle != nil {
		email, err := h.zelle.ZelleEmail(ctx)
		if err != nil {
			h.logger.Error("failed to load zelle address", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to create booking")
			return
		}
		zelleEmail = email
	}

	appt, err := h.bookings.Create(ctx, req)
	if err != nil {
		appointments.WriteError(w, h.logger, "failed to create booking", err)
		return
	}
	respond.JSON(w, http.StatusOK, ZelleBookingResponse{
		BookingID:  appt.ID,
		ZelleEmail: zelleEmail,
		Amount:     displayAmount(appt.AmountCents, appt.Currency),
		Message:    "Please send payment proof after completing Zelle transfer",
	})
}

func displayAmount(cents int64, currency string) string {
	if currency == "" || strings.EqualFold(currency, "USD") {
		return "$" + formatAmount(cents)
	}
	return formatAmount(cents) + " " + strings.ToUpper(currency)
}

func timed[T any](m *metrics.BookingMetrics, g Gateway, op string, call func() (T, error)) (T, error) {
	start := time.Now()
	out, err := call()
	m.ObserveGatewayCall(g.Name(), op, err, time.Since(start).Seconds())
	return out, err
}
