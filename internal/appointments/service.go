package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/psicoliz/booking/internal/observability/metrics"
	"github.com/psicoliz/booking/internal/schedule"
	"github.com/psicoliz/booking/pkg/logging"
)

var appointmentsTracer = otel.Tracer("booking.internal.appointments")

// AvailabilityChecker answers whether a slot is still free.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, date, slot string) (bool, error)
}

// PriceQuoter prices a session tier in minor units.
type PriceQuoter interface {
	QuoteCents(ctx context.Context, sessionType string) (int64, string, error)
}

// Notifier is told about confirmed appointments.
type Notifier interface {
	AppointmentConfirmed(ctx context.Context, appt Appointment) error
}

// Service owns the appointment lifecycle.
type Service struct {
	repo         Repository
	availability AvailabilityChecker
	pricing      PriceQuoter
	notifier     Notifier
	metrics      *metrics.BookingMetrics
	phoneRegion  string
	now          func() time.Time
	logger       *logging.Logger
}

// NewService constructs an appointments service.
func NewService(repo Repository, availability AvailabilityChecker, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:         repo,
		availability: availability,
		phoneRegion:  "VE",
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

func (s *Service) WithPricing(p PriceQuoter) *Service {
	s.pricing = p
	return s
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithPhoneRegion(region string) *Service {
	if region = strings.TrimSpace(region); region != "" {
		s.phoneRegion = region
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// HoldsForDate lets the schedule resolver see booked slots.
func (s *Service) HoldsForDate(ctx context.Context, date string) ([]schedule.Hold, error) {
	return s.repo.HoldsForDate(ctx, date)
}

// Create validates req, re-checks the slot and stores a pending appointment.
// The availability check and insert are not atomic.
func (s *Service) Create(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()

	norm, err := req.Normalize(s.phoneRegion)
	if err != nil {
		s.metrics.ObserveBooking(string(req.PaymentMethod), "invalid")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("booking.date", norm.AppointmentDate),
		attribute.String("booking.time", norm.AppointmentTime),
		attribute.String("booking.payment_method", string(norm.PaymentMethod)),
	)

	if s.availability != nil {
		ok, err := s.availability.IsAvailable(ctx, norm.AppointmentDate, norm.AppointmentTime)
		if err != nil && !errors.Is(err, schedule.ErrOutOfRange) {
			span.RecordError(err)
			return nil, fmt.Errorf("appointments: check availability: %w", err)
		}
		if !ok {
			s.metrics.ObserveBooking(string(norm.PaymentMethod), "unavailable")
			return nil, ErrSlotUnavailable
		}
	}

	var amount int64
	currency := "USD"
	if s.pricing != nil {
		if amount, currency, err = s.pricing.QuoteCents(ctx, string(norm.SessionType)); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("appointments: quote price: %w", err)
		}
	}

	now := s.now()
	appt := &Appointment{
		ID:            uuid.New(),
		Date:          norm.AppointmentDate,
		Time:          norm.AppointmentTime,
		FullName:      norm.FullName,
		Email:         norm.Email,
		WhatsApp:      norm.WhatsApp,
		PaymentMethod: norm.PaymentMethod,
		SessionType:   norm.SessionType,
		AmountCents:   amount,
		Currency:      currency,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveBooking(string(appt.PaymentMethod), "created")
	s.logger.Info("appointment created",
		"booking_id", appt.ID, "date", appt.Date, "time", appt.Time,
		"payment_method", appt.PaymentMethod, "amount_cents", appt.AmountCents)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return s.repo.List(ctx, filter)
}

// AttachGatewayPayment records the gateway's payment id on a pending booking.
func (s *Service) AttachGatewayPayment(ctx context.Context, id uuid.UUID, paymentID string) (*Appointment, error) {
	appt, _, err := s.mutate(ctx, id, "appointments.attach_payment", func(a *Appointment) error {
		if !a.PaymentMethod.IsGateway() {
			return ErrWrongMethod
		}
		if a.Status != StatusPending {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, a.Status)
		}
		a.GatewayPaymentID = paymentID
		return nil
	})
	return appt, err
}

// ConfirmGatewayPayment confirms a booking after the gateway captured paymentID.
// Confirming an already confirmed booking with the same payment is a no-op.
func (s *Service) ConfirmGatewayPayment(ctx context.Context, id uuid.UUID, paymentID, payerID string) (*Appointment, error) {
	appt, changed, err := s.mutate(ctx, id, "appointments.confirm_gateway", func(a *Appointment) error {
		if !a.PaymentMethod.IsGateway() {
			return ErrWrongMethod
		}
		if a.GatewayPaymentID != "" && a.GatewayPaymentID != paymentID {
			return ErrPaymentMismatch
		}
		if a.Status == StatusConfirmed {
			return errNoChange
		}
		if err := s.transition(a, StatusConfirmed); err != nil {
			return err
		}
		a.GatewayPaymentID = paymentID
		a.PayerID = payerID
		now := s.now()
		a.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifyConfirmed(ctx, appt)
	}
	return appt, nil
}

// MarkProofReceived attaches a stored proof image and moves the booking to awaiting_payment_proof.
func (s *Service) MarkProofReceived(ctx context.Context, id uuid.UUID, proof ProofRef) (*Appointment, error) {
	appt, _, err := s.mutate(ctx, id, "appointments.proof_received", func(a *Appointment) error {
		if a.PaymentMethod != MethodZelle {
			return ErrWrongMethod
		}
		if err := s.transition(a, StatusAwaitingProof); err != nil {
			return err
		}
		a.ProofKey = proof.Key
		a.ProofFilename = proof.Filename
		a.ProofContentType = proof.ContentType
		now := s.now()
		a.ProofUploadedAt = &now
		return nil
	})
	return appt, err
}

// ConfirmManual is the admin confirmation of a manually paid booking.
func (s *Service) ConfirmManual(ctx context.Context, id uuid.UUID, admin string) (*Appointment, error) {
	appt, _, err := s.mutate(ctx, id, "appointments.confirm_manual", func(a *Appointment) error {
		if a.PaymentMethod != MethodZelle {
			return ErrWrongMethod
		}
		if err := s.transition(a, StatusConfirmed); err != nil {
			return err
		}
		a.ConfirmedBy = admin
		now := s.now()
		a.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyConfirmed(ctx, appt)
	return appt, nil
}

// Cancel releases the booking's slot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	appt, _, err := s.mutate(ctx, id, "appointments.cancel", func(a *Appointment) error {
		return s.transition(a, StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "booking_id", id, "reason", reason)
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	s.logger.Info("appointment deleted", "booking_id", id)
	return nil
}

// ExpireStale cancels gateway bookings that stayed pending longer than ttl.
func (s *Service) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.expire_stale")
	defer span.End()

	cutoff := s.now().Add(-ttl)
	ids, err := s.repo.CancelStale(ctx, []PaymentMethod{MethodPayPal, MethodCard}, cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("booking.expired", len(ids)))
	s.metrics.ObserveExpired(len(ids))
	if len(ids) > 0 {
		s.logger.Info("stale pending bookings cancelled", "count", len(ids), "cutoff", cutoff)
	}
	return len(ids), nil
}

var errNoChange = errors.New("appointments: no change")

// mutate loads id, applies the change and writes it back guarded by the
// previously stored status. changed is false when apply returned errNoChange.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, apply func(*Appointment) error) (appt *Appointment, changed bool, err error) {
	ctx, span := appointmentsTracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", id.String()))

	appt, err = s.repo.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	previous := appt.Status
	if err := apply(appt); err != nil {
		if errors.Is(err, errNoChange) {
			return appt, false, nil
		}
		span.RecordError(err)
		return nil, false, err
	}
	appt.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, appt, previous); err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	if previous != appt.Status {
		s.metrics.ObserveTransition(string(previous), string(appt.Status))
		s.logger.Info("appointment status changed", "booking_id", id, "from", previous, "to", appt.Status)
	}
	return appt, true, nil
}

func (s *Service) transition(a *Appointment, to Status) error {
	if err := checkTransition(a.Status, to); err != nil {
		return err
	}
	a.Status = to
	return nil
}

func (s *Service) notifyConfirmed(ctx context.Context, appt *Appointment) {
	if s.notifier == nil || appt == nil {
		return
	}
	if err := s.notifier.AppointmentConfirmed(ctx, *appt); err != nil {
		s.logger.Warn("confirmation notification failed", "booking_id", appt.ID, "error", err)
	}
}
