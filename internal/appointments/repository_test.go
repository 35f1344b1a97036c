package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentRowColumns = []string{
	"id", "appointment_date", "appointment_time", "full_name", "email", "whatsapp",
	"payment_method", "session_type", "amount_cents", "currency", "status",
	"gateway_payment_id", "payer_id", "proof_key", "proof_filename", "proof_content_type",
	"confirmed_by", "created_at", "updated_at", "confirmed_at", "proof_uploaded_at",
}

func TestPGRepositoryInsertAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepository(mock)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	appt := &Appointment{
		ID: uuid.New(), Date: "2026-03-02", Time: "09:00", FullName: "Ana", Email: "ana@example.com",
		WhatsApp: "+584141234567", PaymentMethod: MethodZelle, SessionType: SessionStandard,
		AmountCents: 5000, Currency: "USD", Status: StatusPending, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(appt.ID, date, "09:00", "Ana", "ana@example.com", "+584141234567",
			"zelle", "standard", int64(5000), "USD", "pending", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Insert(ctx, appt))

	rows := pgxmock.NewRows(appointmentRowColumns).AddRow(
		appt.ID, date, "09:00", "Ana", "ana@example.com", "+584141234567",
		"zelle", "standard", int64(5000), "USD", "awaiting_payment_proof",
		"", "", "proofs/a.png", "a.png", "image/png",
		"", now, now, nil, nil,
	)
	mock.ExpectQuery("SELECT id, appointment_date").WithArgs(appt.ID).WillReturnRows(rows)

	got, err := repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", got.Date)
	assert.Equal(t, StatusAwaitingProof, got.Status)
	assert.Equal(t, MethodZelle, got.PaymentMethod)
	assert.True(t, got.HasProof())
	assert.Nil(t, got.ConfirmedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, appointment_date").WithArgs(id).WillReturnError(pgx.ErrNoRows)
	_, err = NewPGRepository(mock).Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryUpdateDetectsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepository(mock)

	appt := &Appointment{ID: uuid.New(), Status: StatusConfirmed}
	args := []any{appt.ID, "confirmed"}
	for i := 0; i < 9; i++ {
		args = append(args, pgxmock.AnyArg())
	}
	args = append(args, "pending")

	mock.ExpectExec("UPDATE appointments").WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), appt, StatusPending))

	mock.ExpectExec("UPDATE appointments").WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Update(context.Background(), appt, StatusPending), ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryListFiltersByStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM appointments WHERE status = ANY\(\$1\) ORDER BY created_at DESC LIMIT \$2`).
		WithArgs([]string{"pending", "awaiting_payment_proof"}, 20).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns))

	items, err := NewPGRepository(mock).List(context.Background(), ListFilter{
		Statuses: []Status{StatusPending, StatusAwaitingProof},
		Limit:    20,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepositoryHoldsAndStale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPGRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery("SELECT appointment_time").
		WithArgs(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).AddRow("09:00").AddRow("15:00"))
	holds, err := repo.HoldsForDate(ctx, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, holds, 2)
	assert.Equal(t, "15:00", holds[1].Time)
	assert.Equal(t, "2026-03-02", holds[1].Date)

	cutoff := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id := uuid.New()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs([]string{"paypal", "card"}, cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
	ids, err := repo.CancelStale(ctx, []PaymentMethod{MethodPayPal, MethodCard}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	mock.ExpectExec("DELETE FROM appointments").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	removed, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, mock.ExpectationsWereMet())
}
