package appointments

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusConfirmed   Status = "CONFIRMED"
	StatusCanceled    Status = "CANCELED"
	StatusRescheduled Status = "RESCHEDULED"
)

// Active reports whether the status counts toward the one-appointment-per-phone rule.
func (s Status) Active() bool {
	return s != StatusCanceled
}

// Appointment is the persisted booking record. The Google Calendar event
// is the source of truth; the row mirrors it via GoogleEventID.
type Appointment struct {
	ID               int64
	PhoneNumber      string
	Date             time.Time // calendar date, midnight UTC
	Time             TimeOfDay
	Summary          string
	Status           Status
	GoogleEventID    string
	ConfirmationSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TimeOfDay is a wall-clock time without a date, minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:mm" (seconds, if present, are discarded).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("horário inválido %q, use HH:mm", s)
}

// String formats the time as "HH:mm".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Microseconds returns the offset from midnight, the representation
// Postgres TIME columns use.
func (t TimeOfDay) Microseconds() int64 {
	return (int64(t.Hour)*3600 + int64(t.Minute)*60) * 1e6
}

// TimeOfDayFromMicroseconds converts a Postgres TIME value back,
// truncating to minute precision.
func TimeOfDayFromMicroseconds(us int64) TimeOfDay {
	minutes := us / 1e6 / 60
	return TimeOfDay{Hour: int(minutes / 60), Minute: int(minutes % 60)}
}

// ParseDate parses a "yyyy-MM-dd" calendar date into a midnight-UTC time.Time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("data inválida %q, use yyyy-MM-dd", s)
	}
	return d, nil
}

// FormatDate renders a date as "yyyy-MM-dd".
func FormatDate(d time.Time) string {
	return d.Format(time.DateOnly)
}

// DateOnly strips the clock and zone from t, keeping its local calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
