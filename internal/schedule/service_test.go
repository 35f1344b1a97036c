package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psicoliz/booking/pkg/logging"
)

type stubHolds struct {
	holds map[string][]Hold
	err   error
}

func (s *stubHolds) HoldsForDate(_ context.Context, date string) ([]Hold, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.holds[date], nil
}

func newTestService(t *testing.T, holds HoldSource) (*Service, *MemoryStore) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := NewWindow(time.UTC, 2).WithClock(func() time.Time { return now })
	store := NewMemoryStore()
	return NewService(store, holds, window, logging.Discard()), store
}

func TestServiceAvailableTimesUsesDefaultTemplate(t *testing.T) {
	svc, _ := newTestService(t, nil)
	times, err := svc.AvailableTimes(context.Background(), "2026-03-07")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00", "12:00"}, times)

	times, err = svc.AvailableTimes(context.Background(), "2026-03-08")
	require.NoError(t, err)
	assert.Empty(t, times)
}

func TestServiceAvailableTimesSubtractsHolds(t *testing.T) {
	holds := &stubHolds{holds: map[string][]Hold{
		"2026-03-02": {{Date: "2026-03-02", Time: "09:00"}, {Date: "2026-03-02", Time: "14:00", Released: true}},
	}}
	svc, _ := newTestService(t, holds)
	times, err := svc.AvailableTimes(context.Background(), "2026-03-02")
	require.NoError(t, err)
	assert.NotContains(t, times, "09:00")
	assert.Contains(t, times, "14:00")
	assert.Len(t, times, 8)
}

func TestServiceOverrideLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.SetOverride(ctx, OverrideRequest{Date: "2026-03-02", AvailableTimes: []string{"19:00", "08:00"}})
	require.NoError(t, err)
	times, err := svc.AvailableTimes(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "19:00"}, times)

	blocked := false
	_, err = svc.SetOverride(ctx, OverrideRequest{Date: "2026-03-02", IsAvailable: &blocked})
	require.NoError(t, err)
	times, err = svc.AvailableTimes(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Empty(t, times)

	removed, err := svc.ClearOverride(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.True(t, removed)
	times, err = svc.AvailableTimes(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, times, 9)

	removed, err = svc.ClearOverride(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestServiceSaveWeeklyValidates(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil)

	_, err := svc.SaveWeekly(ctx, WeeklyTemplate{time.Monday: {"nine"}})
	assert.ErrorIs(t, err, ErrInvalidTime)

	saved, err := svc.SaveWeekly(ctx, WeeklyTemplate{time.Sunday: {"10:00", "10:00"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, saved[time.Sunday])
	assert.Empty(t, saved[time.Monday])

	stored, err := store.LoadWeekly(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 7)

	times, err := svc.AvailableTimes(ctx, "2026-03-08")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, times)
}

func TestServiceOutOfRangeAndInvalid(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.AvailableTimes(context.Background(), "2026-02-27")
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = svc.AvailableTimes(context.Background(), "2026-06-01")
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = svc.AvailableTimes(context.Background(), "tomorrow")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestServiceHoldErrorPropagates(t *testing.T) {
	svc, _ := newTestService(t, &stubHolds{err: errors.New("db down")})
	_, err := svc.AvailableTimes(context.Background(), "2026-03-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load holds")
}

func TestServiceIsAvailable(t *testing.T) {
	holds := &stubHolds{holds: map[string][]Hold{"2026-03-02": {{Date: "2026-03-02", Time: "10:00"}}}}
	svc, _ := newTestService(t, holds)
	ctx := context.Background()

	ok, err := svc.IsAvailable(ctx, "2026-03-02", "9:00")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAvailable(ctx, "2026-03-02", "10:00")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsAvailable(ctx, "2026-03-02", "later")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestServiceSnapshotSkipsPastOverrides(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil)
	require.NoError(t, store.UpsertOverride(ctx, CustomOverride{Date: "2026-02-20", IsAvailable: false}))
	require.NoError(t, store.UpsertOverride(ctx, CustomOverride{Date: "2026-03-10", AvailableTimes: []string{"10:00"}, IsAvailable: true}))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Overrides, 1)
	assert.Equal(t, "2026-03-10", snap.Overrides[0].Date)
	assert.Len(t, snap.Weekly[time.Monday], 9)
}
