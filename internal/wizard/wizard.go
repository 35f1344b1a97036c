// Package wizard drives the four-step public booking flow against the API.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/psicoliz/booking/internal/appointments"
	"github.com/psicoliz/booking/internal/client"
	"github.com/psicoliz/booking/internal/payments"
	"github.com/psicoliz/booking/internal/proofs"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/pkg/logging"
)

// Step is a wizard state.
type Step int

const (
	SelectSlot Step = iota
	EnterContact
	ChoosePayment
	Confirm
)

func (s Step) String() string {
	switch s {
	case SelectSlot:
		return "select_slot"
	case EnterContact:
		return "enter_contact"
	case ChoosePayment:
		return "choose_payment"
	case Confirm:
		return "confirm"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrSlotRequired          = errors.New("wizard: choose a date and time")
	ErrContactIncomplete     = errors.New("wizard: name, email and whatsapp are required")
	ErrPaymentMethodRequired = errors.New("wizard: choose a payment method")
	ErrNotReady              = errors.New("wizard: booking can only be submitted from the confirm step")
	ErrNoZelleBooking        = errors.New("wizard: no zelle booking awaiting proof")
)

// SlotSource lists free times for a date.
type SlotSource interface {
	AvailableSlots(ctx context.Context, date string) ([]string, error)
}

// Submitter creates bookings and receives payment proofs.
type Submitter interface {
	CreatePayPalOrder(ctx context.Context, req appointments.BookingRequest) (*client.Redirect, error)
	CreateCardCheckout(ctx context.Context, req appointments.BookingRequest) (*client.Redirect, error)
	CreateZelleBooking(ctx context.Context, req appointments.BookingRequest) (*payments.ZelleBookingResponse, error)
	UploadProof(ctx context.Context, bookingID, filename, contentType string, data []byte) (*proofs.UploadResponse, error)
}

// Contact is the step two form.
type Contact struct {
	FullName string
	Email    string
	WhatsApp string
}

func (c Contact) complete() bool {
	return strings.TrimSpace(c.FullName) != "" &&
		strings.TrimSpace(c.Email) != "" &&
		strings.TrimSpace(c.WhatsApp) != ""
}

// Outcome is what the caller does after a successful submit. Gateway methods
// set RedirectURL; zelle sets ZelleEmail and Amount and expects UploadProof.
type Outcome struct {
	Method      appointments.PaymentMethod
	BookingID   string
	RedirectURL string
	ZelleEmail  string
	Amount      string
}

// NeedsProof reports whether the booking waits for a proof upload.
func (o Outcome) NeedsProof() bool {
	return o.Method == appointments.MethodZelle
}

// Wizard is one in-memory booking session. It is not safe for concurrent use.
type Wizard struct {
	slots  SlotSource
	submit Submitter
	window *schedule.Window
	logger *logging.Logger

	step        Step
	date        string
	time        string
	available   []string
	contact     Contact
	method      appointments.PaymentMethod
	sessionType appointments.SessionType
	outcome     *Outcome
}

func New(slots SlotSource, submit Submitter, window *schedule.Window, logger *logging.Logger) *Wizard {
	if logger == nil {
		logger = logging.Default()
	}
	if window == nil {
		window = schedule.NewWindow(nil, 2)
	}
	return &Wizard{
		slots:       slots,
		submit:      submit,
		window:      window,
		logger:      logger,
		sessionType: appointments.SessionStandard,
	}
}

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Date() string { return w.date }

func (w *Wizard) Time() string { return w.time }

func (w *Wizard) Contact() Contact { return w.contact }

func (w *Wizard) PaymentMethod() appointments.PaymentMethod { return w.method }

// Slots returns the times loaded for the selected date.
func (w *Wizard) Slots() []string { return slices.Clone(w.available) }

// SelectDate loads the free times for date and clears the chosen time. Dates
// outside the booking window give no slots without asking the server; a
// failed lookup is logged and also gives no slots.
func (w *Wizard) SelectDate(ctx context.Context, date string) []string {
	w.date = strings.TrimSpace(date)
	w.time = ""
	w.available = []string{}

	if _, err := w.window.Check(w.date); err != nil {
		w.logger.Debug("date not bookable", "date", w.date, "error", err)
		return w.Slots()
	}
	times, err := w.slots.AvailableSlots(ctx, w.date)
	if err != nil {
		w.logger.Warn("failed to load available slots", "date", w.date, "error", err)
		return w.Slots()
	}
	if times != nil {
		w.available = times
	}
	return w.Slots()
}

// SelectTime picks one of the loaded times.
func (w *Wizard) SelectTime(t string) error {
	if w.date == "" || !slices.Contains(w.available, t) {
		return ErrSlotRequired
	}
	w.time = t
	return nil
}

func (w *Wizard) SetContact(c Contact) { w.contact = c }

func (w *Wizard) SetPaymentMethod(m appointments.PaymentMethod) { w.method = m }

// SetSessionType picks the session length; unknown values are ignored.
func (w *Wizard) SetSessionType(s appointments.SessionType) {
	if s.Valid() {
		w.sessionType = s
	}
}

// Next advances when the current step's form is complete.
func (w *Wizard) Next() error {
	switch w.step {
	case SelectSlot:
		if w.date == "" || w.time == "" {
			return ErrSlotRequired
		}
	case EnterContact:
		if !w.contact.complete() {
			return ErrContactIncomplete
		}
	case ChoosePayment:
		if !w.method.Valid() {
			return ErrPaymentMethodRequired
		}
	case Confirm:
		return nil
	}
	w.step++
	return nil
}

// Back returns to the previous step keeping everything entered so far.
func (w *Wizard) Back() {
	if w.step > SelectSlot {
		w.step--
	}
}

// Request is the booking body built from the wizard's data.
func (w *Wizard) Request() appointments.BookingRequest {
	return appointments.BookingRequest{
		FullName:        strings.TrimSpace(w.contact.FullName),
		Email:           strings.TrimSpace(w.contact.Email),
		WhatsApp:        strings.TrimSpace(w.contact.WhatsApp),
		AppointmentDate: w.date,
		AppointmentTime: w.time,
		PaymentMethod:   w.method,
		SessionType:     w.sessionType,
	}
}

// Submit creates the booking. On failure the wizard stays on Confirm so the
// caller can retry. Once a booking exists, Submit returns it again without
// creating another.
func (w *Wizard) Submit(ctx context.Context) (*Outcome, error) {
	if w.outcome != nil {
		return w.Outcome(), nil
	}
	if w.step != Confirm {
		return nil, ErrNotReady
	}
	req := w.Request()

	var out Outcome
	switch w.method {
	case appointments.MethodPayPal, appointments.MethodCard:
		create := w.submit.CreatePayPalOrder
		if w.method == appointments.MethodCard {
			create = w.submit.CreateCardCheckout
		}
		redirect, err := create(ctx, req)
		if err != nil {
			w.logger.Warn("booking submit failed", "method", w.method, "date", req.AppointmentDate, "error", err)
			return nil, fmt.Errorf("wizard: submit %s booking: %w", w.method, err)
		}
		out = Outcome{Method: w.method, BookingID: redirect.BookingID, RedirectURL: redirect.URL}
	case appointments.MethodZelle:
		resp, err := w.submit.CreateZelleBooking(ctx, req)
		if err != nil {
			w.logger.Warn("booking submit failed", "method", w.method, "date", req.AppointmentDate, "error", err)
			return nil, fmt.Errorf("wizard: submit zelle booking: %w", err)
		}
		out = Outcome{
			Method:     w.method,
			BookingID:  resp.BookingID.String(),
			ZelleEmail: resp.ZelleEmail,
			Amount:     resp.Amount,
		}
	default:
		return nil, ErrPaymentMethodRequired
	}

	w.outcome = &out
	w.logger.Info("booking submitted", "booking_id", out.BookingID, "method", out.Method)
	return &out, nil
}

// Outcome returns the last successful submit, or nil.
func (w *Wizard) Outcome() *Outcome {
	if w.outcome == nil {
		return nil
	}
	o := *w.outcome
	return &o
}

// UploadProof sends the transfer receipt for a submitted zelle booking. The
// image is checked locally before any request is made.
func (w *Wizard) UploadProof(ctx context.Context, filename, contentType string, data []byte) (*proofs.UploadResponse, error) {
	if w.outcome == nil || !w.outcome.NeedsProof() {
		return nil, ErrNoZelleBooking
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if err := proofs.Validate(contentType, int64(len(data))); err != nil {
		return nil, err
	}
	resp, err := w.submit.UploadProof(ctx, w.outcome.BookingID, filename, contentType, data)
	if err != nil {
		w.logger.Warn("proof upload failed", "booking_id", w.outcome.BookingID, "error", err)
		return nil, fmt.Errorf("wizard: upload proof: %w", err)
	}
	return resp, nil
}
