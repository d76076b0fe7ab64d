package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision
type Clock struct {
	Hour   int
	Minute int
}

// NewClock creates a validated Clock
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 24 {
		return Clock{}, fmt.Errorf("hour must be between 0 and 24, got %d", hour)
	}
	if minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("minute must be between 0 and 59, got %d", minute)
	}
	if hour == 24 && minute != 0 {
		return Clock{}, fmt.Errorf("clock cannot be after 24:00, got %02d:%02d", hour, minute)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MustClock is like NewClock but panics on invalid input
func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock parses an "HH:MM" string
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid hour in clock %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid minute in clock %q: %w", s, err)
	}
	return NewClock(hour, minute)
}

// Offset returns the clock as a duration since midnight
func (c Clock) Offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

// On returns the instant of this clock on the given day
func (c Clock) On(day time.Time) time.Time {
	return midnight(day).Add(c.Offset())
}

// String formats the clock as HH:MM
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// WorkingDay describes the working hours of a post and its lunch break
type WorkingDay struct {
	Start      Clock
	End        Clock
	LunchStart Clock
	LunchEnd   Clock
}

// DefaultWorkingDay returns the standard 08:00-17:00 day with a 12:00-13:00 lunch break
func DefaultWorkingDay() WorkingDay {
	return WorkingDay{
		Start:      Clock{Hour: 8},
		End:        Clock{Hour: 17},
		LunchStart: Clock{Hour: 12},
		LunchEnd:   Clock{Hour: 13},
	}
}

// Validate checks that the lunch break is well-formed
func (w WorkingDay) Validate() error {
	if w.LunchEnd.Offset() < w.LunchStart.Offset() {
		return fmt.Errorf("lunch end %s cannot be before lunch start %s", w.LunchEnd, w.LunchStart)
	}
	return nil
}

// Capacity returns the working time of one day: the span between start and
// end minus the part of the lunch break that falls inside it.
func (w WorkingDay) Capacity() time.Duration {
	start, end := w.Start.Offset(), w.End.Offset()
	if end <= start {
		return 0
	}
	lunchStart := max(w.LunchStart.Offset(), start)
	lunchEnd := min(w.LunchEnd.Offset(), end)
	capacity := end - start
	if lunchEnd > lunchStart {
		capacity -= lunchEnd - lunchStart
	}
	return max(capacity, 0)
}

func (w WorkingDay) hasLunch() bool {
	return w.LunchEnd.Offset() > w.LunchStart.Offset()
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ceilMinute(t time.Time) time.Time {
	truncated := t.Truncate(time.Minute)
	if truncated.Before(t) {
		return truncated.Add(time.Minute)
	}
	return truncated
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
