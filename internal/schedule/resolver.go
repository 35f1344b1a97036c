package schedule

import (
	"errors"
	"sort"
	"time"
)

// ErrOutOfRange is returned for dates outside the booking window.
var ErrOutOfRange = errors.New("schedule: date outside booking window")

// Resolve computes the free start times for day.
//
// A blocked override yields nothing. Otherwise the override's times (or the
// template's times for the weekday) are used, minus every time held by an
// unreleased appointment on that date. The result is sorted ascending.
func Resolve(day time.Time, tmpl WeeklyTemplate, overrides map[string]CustomOverride, holds []Hold) []string {
	key := FormatDate(day)

	var candidates []string
	if override, ok := overrides[key]; ok {
		if override.Blocked() {
			return []string{}
		}
		candidates = override.AvailableTimes
	} else {
		candidates = tmpl[day.Weekday()]
	}

	held := make(map[string]struct{}, len(holds))
	for _, h := range holds {
		if h.Released || h.Date != key {
			continue
		}
		held[h.Time] = struct{}{}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, t := range candidates {
		if _, taken := held[t]; taken {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Window bounds bookable dates to [today, today + months] in a fixed zone.
type Window struct {
	loc    *time.Location
	months int
	now    func() time.Time
}

// NewWindow returns a booking window. A nil loc means UTC; months below 1 means 1.
func NewWindow(loc *time.Location, months int) *Window {
	if loc == nil {
		loc = time.UTC
	}
	if months < 1 {
		months = 1
	}
	return &Window{loc: loc, months: months, now: time.Now}
}

// WithClock overrides the time source.
func (w *Window) WithClock(now func() time.Time) *Window {
	if now != nil {
		w.now = now
	}
	return w
}

// Location returns the zone dates are interpreted in.
func (w *Window) Location() *time.Location {
	return w.loc
}

// Bounds returns the first and last bookable dates (both inclusive, midnight).
func (w *Window) Bounds() (time.Time, time.Time) {
	now := w.now().In(w.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, w.loc)
	return today, today.AddDate(0, w.months, 0)
}

// Contains reports whether day falls inside the window.
func (w *Window) Contains(day time.Time) bool {
	first, last := w.Bounds()
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, w.loc)
	return !d.Before(first) && !d.After(last)
}

// Check parses date and returns ErrOutOfRange when it is not bookable.
func (w *Window) Check(date string) (time.Time, error) {
	day, err := ParseDate(date, w.loc)
	if err != nil {
		return time.Time{}, err
	}
	if !w.Contains(day) {
		return day, ErrOutOfRange
	}
	return day, nil
}
