package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/psicoliz/booking/internal/appointments"
)

// Lister lists appointments newest first.
type Lister interface {
	List(ctx context.Context, filter appointments.ListFilter) ([]appointments.Appointment, error)
}

// ListingSource computes reports from an appointment listing. It serves
// deployments without a SQL database.
type ListingSource struct {
	lister Lister
}

func NewListingSource(lister Lister) *ListingSource {
	return &ListingSource{lister: lister}
}

func (s *ListingSource) Stats(ctx context.Context) (Stats, error) {
	list, err := s.lister.List(ctx, appointments.ListFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("reports: stats: %w", err)
	}
	var stats Stats
	for _, a := range list {
		stats.TotalAppointments++
		switch a.Status {
		case appointments.StatusConfirmed:
			stats.ConfirmedAppointments++
			stats.ConfirmedRevenueCents += a.AmountCents
		case appointments.StatusAwaitingProof:
			stats.AwaitingProof++
			stats.PendingAppointments++
		case appointments.StatusPending:
			stats.PendingAppointments++
		case appointments.StatusCancelled:
			stats.CancelledAppointments++
		}
		switch a.PaymentMethod {
		case appointments.MethodPayPal:
			stats.PayPalAppointments++
		case appointments.MethodCard:
			stats.CardAppointments++
		case appointments.MethodZelle:
			stats.ZelleAppointments++
		}
	}
	return stats, nil
}

func (s *ListingSource) ExportRows(ctx context.Context, statuses []string) ([]ExportRow, error) {
	var filter appointments.ListFilter
	for _, st := range statuses {
		filter.Statuses = append(filter.Statuses, appointments.Status(st))
	}
	list, err := s.lister.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reports: export list: %w", err)
	}
	out := make([]ExportRow, 0, len(list))
	for _, a := range list {
		date, err := time.Parse("2006-01-02", a.Date)
		if err != nil {
			return nil, fmt.Errorf("reports: export date %q: %w", a.Date, err)
		}
		out = append(out, ExportRow{
			Date:          date,
			Time:          a.Time,
			FullName:      a.FullName,
			Email:         a.Email,
			WhatsApp:      a.WhatsApp,
			PaymentMethod: string(a.PaymentMethod),
			Status:        string(a.Status),
			CreatedAt:     a.CreatedAt,
		})
	}
	return out, nil
}
