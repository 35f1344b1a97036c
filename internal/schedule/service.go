package schedule

import (
	"context"
	"fmt"

	"github.com/psicoliz/booking/pkg/logging"
)

// HoldSource lists slots already taken on a date.
type HoldSource interface {
	HoldsForDate(ctx context.Context, date string) ([]Hold, error)
}

// Snapshot is the admin view of the whole schedule.
type Snapshot struct {
	Weekly    WeeklyTemplate   `json:"weekly_schedule"`
	Overrides []CustomOverride `json:"custom_schedules"`
}

// Service answers availability questions and applies admin schedule edits.
type Service struct {
	store  Store
	holds  HoldSource
	window *Window
	logger *logging.Logger
}

func NewService(store Store, holds HoldSource, window *Window, logger *logging.Logger) *Service {
	if store == nil {
		panic("schedule: store required")
	}
	if window == nil {
		window = NewWindow(nil, 2)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, holds: holds, window: window, logger: logger}
}

// AvailableTimes resolves the free start times for date.
// Returns ErrInvalidDate for malformed input and ErrOutOfRange outside the window.
func (s *Service) AvailableTimes(ctx context.Context, date string) ([]string, error) {
	day, err := s.window.Check(date)
	if err != nil {
		return nil, err
	}
	key := FormatDate(day)

	tmpl, err := s.store.LoadWeekly(ctx)
	if err != nil {
		return nil, err
	}
	overrides := map[string]CustomOverride{}
	override, err := s.store.GetOverride(ctx, key)
	if err != nil {
		return nil, err
	}
	if override != nil {
		overrides[key] = *override
	}

	var holds []Hold
	if s.holds != nil {
		if holds, err = s.holds.HoldsForDate(ctx, key); err != nil {
			return nil, fmt.Errorf("schedule: load holds: %w", err)
		}
	}

	times := Resolve(day, tmpl, overrides, holds)
	s.logger.Debug("availability resolved", "date", key, "count", len(times), "override", override != nil)
	return times, nil
}

// IsAvailable reports whether the slot can be booked right now.
func (s *Service) IsAvailable(ctx context.Context, date, slot string) (bool, error) {
	norm, err := NormalizeTime(slot)
	if err != nil {
		return false, err
	}
	times, err := s.AvailableTimes(ctx, date)
	if err != nil {
		return false, err
	}
	for _, t := range times {
		if t == norm {
			return true, nil
		}
	}
	return false, nil
}

// Snapshot returns the template and every upcoming override.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	tmpl, err := s.store.LoadWeekly(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	first, _ := s.window.Bounds()
	overrides, err := s.store.ListOverrides(ctx, FormatDate(first))
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Weekly: tmpl, Overrides: overrides}, nil
}

// SaveWeekly validates and stores a full weekly template.
func (s *Service) SaveWeekly(ctx context.Context, tmpl WeeklyTemplate) (WeeklyTemplate, error) {
	norm, err := tmpl.Normalize()
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveWeekly(ctx, norm); err != nil {
		return nil, err
	}
	s.logger.Info("weekly schedule saved")
	return norm, nil
}

// SetOverride validates and upserts an override for one date.
func (s *Service) SetOverride(ctx context.Context, req OverrideRequest) (CustomOverride, error) {
	override, err := req.Override(s.window.Location())
	if err != nil {
		return CustomOverride{}, err
	}
	if err := s.store.UpsertOverride(ctx, override); err != nil {
		return CustomOverride{}, err
	}
	s.logger.Info("schedule override saved", "date", override.Date, "blocked", override.Blocked(), "times", len(override.AvailableTimes))
	return override, nil
}

// ClearOverride removes the override so the date follows the template again.
func (s *Service) ClearOverride(ctx context.Context, date string) (bool, error) {
	day, err := ParseDate(date, s.window.Location())
	if err != nil {
		return false, err
	}
	removed, err := s.store.DeleteOverride(ctx, FormatDate(day))
	if err != nil {
		return false, err
	}
	s.logger.Info("schedule override cleared", "date", FormatDate(day), "removed", removed)
	return removed, nil
}
