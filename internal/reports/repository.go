package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Stats are the admin dashboard totals.
type Stats struct {
	TotalAppointments     int   `json:"total_appointments"`
	ConfirmedAppointments int   `json:"confirmed_appointments"`
	PendingAppointments   int   `json:"pending_appointments"`
	AwaitingProof         int   `json:"awaiting_proof_appointments"`
	CancelledAppointments int   `json:"cancelled_appointments"`
	PayPalAppointments    int   `json:"paypal_appointments"`
	CardAppointments      int   `json:"card_appointments"`
	ZelleAppointments     int   `json:"zelle_appointments"`
	ConfirmedRevenueCents int64 `json:"confirmed_revenue_cents"`
}

// ExportRow is one appointment line of the CSV export.
type ExportRow struct {
	Date          time.Time
	Time          string
	FullName      string
	Email         string
	WhatsApp      string
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
}

// Repository runs read-only reporting queries.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const statsQuery = `
	SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'confirmed'),
		COUNT(*) FILTER (WHERE status IN ('pending', 'awaiting_payment_proof')),
		COUNT(*) FILTER (WHERE status = 'awaiting_payment_proof'),
		COUNT(*) FILTER (WHERE status = 'cancelled'),
		COUNT(*) FILTER (WHERE payment_method = 'paypal'),
		COUNT(*) FILTER (WHERE payment_method = 'card'),
		COUNT(*) FILTER (WHERE payment_method = 'zelle'),
		COALESCE(SUM(amount_cents) FILTER (WHERE status = 'confirmed'), 0)
	FROM appointments`

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, statsQuery).Scan(
		&s.TotalAppointments, &s.ConfirmedAppointments, &s.PendingAppointments,
		&s.AwaitingProof, &s.CancelledAppointments,
		&s.PayPalAppointments, &s.CardAppointments, &s.ZelleAppointments,
		&s.ConfirmedRevenueCents,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("reports: stats: %w", err)
	}
	return s, nil
}

// ExportRows lists appointments newest first, optionally limited to statuses.
func (r *Repository) ExportRows(ctx context.Context, statuses []string) ([]ExportRow, error) {
	query := `SELECT appointment_date, appointment_time, full_name, email, whatsapp,
		payment_method, status, created_at FROM appointments`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(statuses))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: export query: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.Date, &row.Time, &row.FullName, &row.Email, &row.WhatsApp,
			&row.PaymentMethod, &row.Status, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("reports: export scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: export rows: %w", err)
	}
	return out, nil
}
