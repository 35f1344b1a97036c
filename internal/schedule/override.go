package schedule

import "time"

// CustomOverride replaces the weekly template for one calendar date.
type CustomOverride struct {
	Date           string   `json:"date"`
	AvailableTimes []string `json:"available_times"`
	IsAvailable    bool     `json:"is_available"`
}

// Blocked reports whether the whole date is closed.
func (o CustomOverride) Blocked() bool {
	return !o.IsAvailable
}

// OverrideRequest is the admin payload for PUT /schedule/custom.
// IsAvailable defaults to true when omitted.
type OverrideRequest struct {
	Date           string   `json:"date"`
	AvailableTimes []string `json:"available_times"`
	IsAvailable    *bool    `json:"is_available,omitempty"`
}

// Override validates the request and builds the override it describes.
func (r OverrideRequest) Override(loc *time.Location) (CustomOverride, error) {
	day, err := ParseDate(r.Date, loc)
	if err != nil {
		return CustomOverride{}, err
	}
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	times := []string{}
	if available {
		if times, err = NormalizeTimes(r.AvailableTimes); err != nil {
			return CustomOverride{}, err
		}
	}
	return CustomOverride{
		Date:           FormatDate(day),
		AvailableTimes: times,
		IsAvailable:    available,
	}, nil
}

// Hold is a slot occupied by an appointment.
type Hold struct {
	Date     string
	Time     string
	Released bool
}
