package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "scholarops/pkg/domain-errors"
)

// MinutesPerDay bounds every interval: interviews never run past midnight.
const MinutesPerDay = 24 * 60

// DateLayout is the wire format of interview dates.
const DateLayout = "2006-01-02"

// ClockTime is a wall-clock time of day in minutes since midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" (24-hour).
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, dErrors.New(dErrors.CodeValidation, "time must be HH:MM: "+s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns c shifted by minutes. The result may exceed MinutesPerDay; callers validate.
func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseDate parses a calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD: "+s)
	}
	return d, nil
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Interval is a half-open [Start, End) time range within one day.
type Interval struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// NewInterval builds [start, start+duration) and rejects empty or overnight ranges.
func NewInterval(start ClockTime, durationMinutes int) (Interval, error) {
	if durationMinutes <= 0 {
		return Interval{}, dErrors.New(dErrors.CodeValidation, "duration_minutes must be positive")
	}
	if start < 0 || start >= MinutesPerDay {
		return Interval{}, dErrors.New(dErrors.CodeValidation, "start time must be within the day")
	}
	// Compare before adding so a huge duration cannot wrap around.
	if durationMinutes > MinutesPerDay-int(start) {
		return Interval{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("interview starting %s for %d minutes runs past midnight", start, durationMinutes))
	}
	return Interval{Start: start, End: start.Add(durationMinutes)}, nil
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// Overlaps reports whether two half-open intervals share any minute. Touching
// intervals (one ends when the other starts) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}
