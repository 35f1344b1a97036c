package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/psicoliz/booking/internal/schedule"
)

// Repository persists appointments.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	// Update writes the mutable fields of appt if its stored status is still expected.
	Update(ctx context.Context, appt *Appointment, expected Status) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	HoldsForDate(ctx context.Context, date string) ([]schedule.Hold, error)
	// CancelStale cancels pending bookings of the given methods created before cutoff.
	CancelStale(ctx context.Context, methods []PaymentMethod, cutoff time.Time) ([]uuid.UUID, error)
}

// PgxPool is the subset of pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository stores appointments in Postgres.
type PGRepository struct {
	pool PgxPool
}

func NewPGRepository(pool PgxPool) *PGRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PGRepository{pool: pool}
}

const appointmentColumns = `id, appointment_date, appointment_time, full_name, email, whatsapp,
	payment_method, session_type, amount_cents, currency, status,
	gateway_payment_id, payer_id, proof_key, proof_filename, proof_content_type,
	confirmed_by, created_at, updated_at, confirmed_at, proof_uploaded_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	var method, session, status string
	err := row.Scan(
		&a.ID, &date, &a.Time, &a.FullName, &a.Email, &a.WhatsApp,
		&method, &session, &a.AmountCents, &a.Currency, &status,
		&a.GatewayPaymentID, &a.PayerID, &a.ProofKey, &a.ProofFilename, &a.ProofContentType,
		&a.ConfirmedBy, &a.CreatedAt, &a.UpdatedAt, &a.ConfirmedAt, &a.ProofUploadedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Date = schedule.FormatDate(date)
	a.PaymentMethod = PaymentMethod(method)
	a.SessionType = SessionType(session)
	a.Status = Status(status)
	return &a, nil
}

func (r *PGRepository) Insert(ctx context.Context, a *Appointment) error {
	date, err := schedule.ParseDate(a.Date, time.UTC)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	query := `
		INSERT INTO appointments (id, appointment_date, appointment_time, full_name, email, whatsapp,
			payment_method, session_type, amount_cents, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, date, a.Time, a.FullName, a.Email, a.WhatsApp,
		string(a.PaymentMethod), string(a.SessionType), a.AmountCents, a.Currency, string(a.Status), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// List returns appointments newest first.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var args []any
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(` WHERE status = ANY($%d)`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, a *Appointment, expected Status) error {
	query := `
		UPDATE appointments
		SET status = $2, gateway_payment_id = $3, payer_id = $4,
		    proof_key = $5, proof_filename = $6, proof_content_type = $7,
		    confirmed_by = $8, confirmed_at = $9, proof_uploaded_at = $10, updated_at = $11
		WHERE id = $1 AND status = $12
	`
	tag, err := r.pool.Exec(ctx, query,
		a.ID, string(a.Status), a.GatewayPaymentID, a.PayerID,
		a.ProofKey, a.ProofFilename, a.ProofContentType,
		a.ConfirmedBy, a.ConfirmedAt, a.ProofUploadedAt, a.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("appointments: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// HoldsForDate lists the times held by non-cancelled appointments on date.
func (r *PGRepository) HoldsForDate(ctx context.Context, date string) ([]schedule.Hold, error) {
	day, err := schedule.ParseDate(date, time.UTC)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE appointment_date = $1 AND status <> 'cancelled'
	`, day)
	if err != nil {
		return nil, fmt.Errorf("appointments: holds: %w", err)
	}
	defer rows.Close()

	var holds []schedule.Hold
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: scan hold: %w", err)
		}
		holds = append(holds, schedule.Hold{Date: date, Time: t})
	}
	return holds, rows.Err()
}

func (r *PGRepository) CancelStale(ctx context.Context, methods []PaymentMethod, cutoff time.Time) ([]uuid.UUID, error) {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE appointments
		SET status = 'cancelled', updated_at = now()
		WHERE status = 'pending' AND payment_method = ANY($1) AND created_at < $2
		RETURNING id
	`, names, cutoff)
	if err != nil {
		return nil, fmt.Errorf("appointments: cancel stale: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("appointments: scan stale: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
