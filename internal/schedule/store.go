package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store persists the weekly template and date overrides.
type Store interface {
	LoadWeekly(ctx context.Context) (WeeklyTemplate, error)
	SaveWeekly(ctx context.Context, tmpl WeeklyTemplate) error
	GetOverride(ctx context.Context, date string) (*CustomOverride, error)
	ListOverrides(ctx context.Context, from string) ([]CustomOverride, error)
	UpsertOverride(ctx context.Context, override CustomOverride) error
	DeleteOverride(ctx context.Context, date string) (bool, error)
}

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps schedules in the weekly_schedule and custom_schedules tables.
type PGStore struct {
	pool PgxPool
}

func NewPGStore(pool PgxPool) *PGStore {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PGStore{pool: pool}
}

// LoadWeekly returns the stored template, or DefaultTemplate when nothing was saved.
func (s *PGStore) LoadWeekly(ctx context.Context) (WeeklyTemplate, error) {
	rows, err := s.pool.Query(ctx, `SELECT weekday, available_times FROM weekly_schedule ORDER BY weekday`)
	if err != nil {
		return nil, fmt.Errorf("schedule: load weekly: %w", err)
	}
	defer rows.Close()

	tmpl := WeeklyTemplate{}
	found := false
	for rows.Next() {
		var day int16
		var times []string
		if err := rows.Scan(&day, &times); err != nil {
			return nil, fmt.Errorf("schedule: scan weekly: %w", err)
		}
		if day < 0 || day > 6 {
			continue
		}
		found = true
		tmpl[time.Weekday(day)] = times
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: load weekly: %w", err)
	}
	if !found {
		return DefaultTemplate(), nil
	}
	return tmpl, nil
}

// SaveWeekly replaces all seven days in one transaction.
func (s *PGStore) SaveWeekly(ctx context.Context, tmpl WeeklyTemplate) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schedule: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO weekly_schedule (weekday, available_times, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (weekday) DO UPDATE
		SET available_times = EXCLUDED.available_times, updated_at = now()
	`
	for day := time.Sunday; day <= time.Saturday; day++ {
		times := tmpl[day]
		if times == nil {
			times = []string{}
		}
		if _, err := tx.Exec(ctx, query, int16(day), times); err != nil {
			return fmt.Errorf("schedule: save %s: %w", weekdayKey(day), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schedule: commit weekly: %w", err)
	}
	return nil
}

// GetOverride returns nil when the date has no override.
func (s *PGStore) GetOverride(ctx context.Context, date string) (*CustomOverride, error) {
	day, err := ParseDate(date, time.UTC)
	if err != nil {
		return nil, err
	}
	var o CustomOverride
	var stored time.Time
	err = s.pool.QueryRow(ctx, `
		SELECT schedule_date, available_times, is_available
		FROM custom_schedules
		WHERE schedule_date = $1
	`, day).Scan(&stored, &o.AvailableTimes, &o.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get override: %w", err)
	}
	o.Date = FormatDate(stored)
	return &o, nil
}

// ListOverrides returns overrides on or after from (all when from is empty), by date.
func (s *PGStore) ListOverrides(ctx context.Context, from string) ([]CustomOverride, error) {
	query := `SELECT schedule_date, available_times, is_available FROM custom_schedules`
	var args []any
	if from != "" {
		day, err := ParseDate(from, time.UTC)
		if err != nil {
			return nil, err
		}
		query += ` WHERE schedule_date >= $1`
		args = append(args, day)
	}
	query += ` ORDER BY schedule_date`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("schedule: list overrides: %w", err)
	}
	defer rows.Close()

	out := []CustomOverride{}
	for rows.Next() {
		var o CustomOverride
		var stored time.Time
		if err := rows.Scan(&stored, &o.AvailableTimes, &o.IsAvailable); err != nil {
			return nil, fmt.Errorf("schedule: scan override: %w", err)
		}
		o.Date = FormatDate(stored)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PGStore) UpsertOverride(ctx context.Context, o CustomOverride) error {
	day, err := ParseDate(o.Date, time.UTC)
	if err != nil {
		return err
	}
	times := o.AvailableTimes
	if times == nil {
		times = []string{}
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO custom_schedules (schedule_date, available_times, is_available, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (schedule_date) DO UPDATE
		SET available_times = EXCLUDED.available_times,
		    is_available = EXCLUDED.is_available,
		    updated_at = now()
	`, day, times, o.IsAvailable)
	if err != nil {
		return fmt.Errorf("schedule: upsert override: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteOverride(ctx context.Context, date string) (bool, error) {
	day, err := ParseDate(date, time.UTC)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM custom_schedules WHERE schedule_date = $1`, day)
	if err != nil {
		return false, fmt.Errorf("schedule: delete override: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	weekly    WeeklyTemplate
	overrides map[string]CustomOverride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{overrides: make(map[string]CustomOverride)}
}

func (m *MemoryStore) LoadWeekly(context.Context) (WeeklyTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.weekly
	if src == nil {
		src = DefaultTemplate()
	}
	out := make(WeeklyTemplate, len(src))
	for day, times := range src {
		out[day] = append([]string(nil), times...)
	}
	return out, nil
}

func (m *MemoryStore) SaveWeekly(_ context.Context, tmpl WeeklyTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weekly = make(WeeklyTemplate, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		m.weekly[day] = append([]string{}, tmpl[day]...)
	}
	return nil
}

func (m *MemoryStore) GetOverride(_ context.Context, date string) (*CustomOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.overrides[date]
	if !ok {
		return nil, nil
	}
	o.AvailableTimes = append([]string{}, o.AvailableTimes...)
	return &o, nil
}

func (m *MemoryStore) ListOverrides(_ context.Context, from string) ([]CustomOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []CustomOverride{}
	for date, o := range m.overrides {
		if from != "" && date < from {
			continue
		}
		o.AvailableTimes = append([]string{}, o.AvailableTimes...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryStore) UpsertOverride(_ context.Context, o CustomOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.AvailableTimes = append([]string{}, o.AvailableTimes...)
	m.overrides[o.Date] = o
	return nil
}

func (m *MemoryStore) DeleteOverride(_ context.Context, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.overrides[date]
	delete(m.overrides, date)
	return ok, nil
}
