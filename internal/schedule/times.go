package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-date form used on the wire and as override key.
	DateLayout = "2006-01-02"
	// TimeLayout is the slot start time form (HH:MM, 24h).
	TimeLayout = "15:04"
)

var (
	ErrInvalidDate = errors.New("schedule: invalid date")
	ErrInvalidTime = errors.New("schedule: invalid time")
)

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return day, nil
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeTime validates a single slot time and returns it as zero-padded HH:MM.
func NormalizeTime(value string) (string, error) {
	parsed, err := time.Parse(TimeLayout, strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return parsed.Format(TimeLayout), nil
}

// NormalizeTimes validates, dedupes and sorts a time list. Writes go through
// here so the resolver never sees malformed entries.
func NormalizeTimes(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		norm, err := NormalizeTime(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return out, nil
}
