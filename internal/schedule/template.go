package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WeeklyTemplate maps each weekday to its bookable start times.
// A missing or empty weekday is closed.
type WeeklyTemplate map[time.Weekday][]string

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts a lowercase english day name.
func ParseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

func weekdayKey(day time.Weekday) string {
	return strings.ToLower(day.String())
}

var defaultWeekdayTimes = []string{"09:00", "10:00", "11:00", "12:00", "14:00", "15:00", "16:00", "17:00", "18:00"}

// DefaultTemplate is used until the practitioner saves a schedule.
func DefaultTemplate() WeeklyTemplate {
	tmpl := WeeklyTemplate{
		time.Saturday: {"09:00", "10:00", "11:00", "12:00"},
		time.Sunday:   {},
	}
	for day := time.Monday; day <= time.Friday; day++ {
		tmpl[day] = append([]string(nil), defaultWeekdayTimes...)
	}
	return tmpl
}

// Normalize validates every day and returns a full seven-day template.
func (t WeeklyTemplate) Normalize() (WeeklyTemplate, error) {
	out := make(WeeklyTemplate, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		times, err := NormalizeTimes(t[day])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", weekdayKey(day), err)
		}
		out[day] = times
	}
	return out, nil
}

// MarshalJSON keys the template by lowercase day name.
func (t WeeklyTemplate) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		times := t[day]
		if times == nil {
			times = []string{}
		}
		out[weekdayKey(day)] = times
	}
	return json.Marshal(out)
}

func (t *WeeklyTemplate) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tmpl := make(WeeklyTemplate, len(raw))
	for name, times := range raw {
		day, ok := ParseWeekday(name)
		if !ok {
			return fmt.Errorf("schedule: unknown weekday %q", name)
		}
		tmpl[day] = times
	}
	*t = tmpl
	return nil
}
