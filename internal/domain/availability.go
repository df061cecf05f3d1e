package domain

import "time"

// AvailabilityWindow marks a weekday (0=Sunday .. 6=Saturday) as open
// for bookings. Reference data maintained by an administrator.
type AvailabilityWindow struct {
	Weekday   int       `json:"weekday"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlockedDate marks a single calendar date unavailable, overriding any
// availability window for that weekday.
type BlockedDate struct {
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatesCovered lists every UTC calendar date the half-open interval
// [start, end) touches, ascending. An interval ending exactly at
// midnight does not touch the following date.
func DatesCovered(start, end time.Time) []time.Time {
	first := DateOf(start)
	last := DateOf(end.Add(-time.Nanosecond))
	var dates []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
