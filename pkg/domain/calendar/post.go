package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxSearchDays bounds how far FindSlot looks ahead of its start.
	DefaultMaxSearchDays = 180

	maxMomentIterations  = 10000
	maxProjectIterations = 20000
)

var (
	// ErrInfeasible is returned when no valid placement exists within the
	// calendar's search bounds.
	ErrInfeasible = errors.New("calendar: infeasible")

	// ErrNoWorkingMoment is returned when no working instant can be found.
	ErrNoWorkingMoment = fmt.Errorf("no working moment: %w", ErrInfeasible)

	// ErrBookingOverlap is returned when a booking would overlap another key's booking.
	ErrBookingOverlap = errors.New("calendar: booking overlaps an existing booking")
)

// BookingKey identifies the booking of one operation step of one order
type BookingKey struct {
	OrderID string
	Step    int
}

// String returns a readable form of the key
func (k BookingKey) String() string {
	return fmt.Sprintf("%s#%d", k.OrderID, k.Step)
}

// Interval is a closed time interval used for unavailability periods
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the interval, both ends included
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Slot is a half-open [Start, End) placement found on a post
type Slot struct {
	Start time.Time
	End   time.Time
}

// Booking is a committed slot on a post
type Booking struct {
	Start time.Time
	End   time.Time
	Key   BookingKey
}

// Duration returns the length of the booking
func (b Booking) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

func (b Booking) overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

// Post is a work center with a daily calendar, unavailability periods and
// a list of bookings that never overlap.
type Post struct {
	ID         string
	Name       string
	WorkingDay WorkingDay
	// WeeklyCapacityHours is informational; the calendar derives capacity
	// from WorkingDay.
	WeeklyCapacityHours decimal.Decimal
	MaxSearchDays       int

	unavailability []Interval
	bookings       []Booking
}

// NewPost creates a validated Post
func NewPost(id, name string, workingDay WorkingDay) (*Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post id cannot be empty")
	}
	if err := workingDay.Validate(); err != nil {
		return nil, fmt.Errorf("post %s: %w", id, err)
	}
	if name == "" {
		name = id
	}

	return &Post{
		ID:            id,
		Name:          name,
		WorkingDay:    workingDay,
		MaxSearchDays: DefaultMaxSearchDays,
	}, nil
}

// DailyCapacity returns the working time available on a regular working day
func (p *Post) DailyCapacity() time.Duration {
	return p.WorkingDay.Capacity()
}

// AddUnavailability marks the post unavailable from the start of startDay to
// the last second of endDay.
func (p *Post) AddUnavailability(startDay, endDay time.Time) error {
	from := midnight(startDay)
	to := midnight(endDay).Add(24*time.Hour - time.Second)
	if to.Before(from) {
		return fmt.Errorf("unavailability end %s cannot be before start %s",
			endDay.Format("2006-01-02"), startDay.Format("2006-01-02"))
	}

	idx := sort.Search(len(p.unavailability), func(i int) bool {
		return p.unavailability[i].Start.After(from)
	})
	p.unavailability = append(p.unavailability, Interval{})
	copy(p.unavailability[idx+1:], p.unavailability[idx:])
	p.unavailability[idx] = Interval{Start: from, End: to}
	return nil
}

// Unavailability returns a copy of the unavailability periods, ordered by start
func (p *Post) Unavailability() []Interval {
	out := make([]Interval, len(p.unavailability))
	copy(out, p.unavailability)
	return out
}

// IsWorkingMoment reports whether work can happen on the post at t
func (p *Post) IsWorkingMoment(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	tod := t.Sub(midnight(t))
	w := p.WorkingDay
	if tod < w.Start.Offset() || tod >= w.End.Offset() {
		return false
	}
	if w.hasLunch() && tod >= w.LunchStart.Offset() && tod < w.LunchEnd.Offset() {
		return false
	}
	_, blocked := p.unavailableAt(t)
	return !blocked
}

// NextWorkingMoment returns the earliest working instant at or after t,
// rounded up to the minute.
func (p *Post) NextWorkingMoment(t time.Time) (time.Time, error) {
	if p.DailyCapacity() <= 0 {
		return time.Time{}, fmt.Errorf("post %s has no daily capacity: %w", p.ID, ErrNoWorkingMoment)
	}

	w := p.WorkingDay
	cur := ceilMinute(t)
	for i := 0; i < maxMomentIterations; i++ {
		day := midnight(cur)
		if isWeekend(cur) {
			cur = day.AddDate(0, 0, 1)
			continue
		}
		if iv, blocked := p.unavailableAt(cur); blocked {
			cur = ceilMinute(iv.End.Add(time.Second))
			continue
		}

		start, end := w.Start.On(day), w.End.On(day)
		if cur.Before(start) {
			cur = start
			continue
		}
		if !cur.Before(end) {
			cur = day.AddDate(0, 0, 1)
			continue
		}
		if w.hasLunch() {
			lunchStart, lunchEnd := w.LunchStart.On(day), w.LunchEnd.On(day)
			if !cur.Before(lunchStart) && cur.Before(lunchEnd) {
				cur = lunchEnd
				continue
			}
		}
		return cur, nil
	}

	return time.Time{}, fmt.Errorf("post %s after %s: %w", p.ID, t.Format(time.RFC3339), ErrNoWorkingMoment)
}

// ProjectEnd returns the instant at which d of working time, started at the
// next working moment after start, is complete.
func (p *Post) ProjectEnd(start time.Time, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return start, nil
	}

	cur, err := p.NextWorkingMoment(start)
	if err != nil {
		return time.Time{}, err
	}
	remaining := d
	for i := 0; i < maxProjectIterations; i++ {
		segmentEnd := p.segmentEnd(cur)
		available := segmentEnd.Sub(cur)
		if remaining <= available {
			return cur.Add(remaining), nil
		}
		remaining -= available

		cur, err = p.NextWorkingMoment(segmentEnd)
		if err != nil {
			return time.Time{}, fmt.Errorf("projecting %s on post %s: %w", d, p.ID, err)
		}
	}

	return time.Time{}, fmt.Errorf("projecting %s on post %s from %s: %w",
		d, p.ID, start.Format(time.RFC3339), ErrInfeasible)
}

// FindSlot searches for the earliest [start, end) placement of d working time
// at or after from that does not overlap any booking, ignoring bookings keyed
// with ignore.
func (p *Post) FindSlot(from time.Time, d time.Duration, ignore BookingKey) (Slot, error) {
	days := p.MaxSearchDays
	if days <= 0 {
		days = DefaultMaxSearchDays
	}
	limit := from.AddDate(0, 0, days)

	cur := from
	for {
		start, err := p.NextWorkingMoment(cur)
		if err != nil {
			return Slot{}, err
		}
		if start.After(limit) {
			return Slot{}, fmt.Errorf("no free slot of %s on post %s within %d days of %s: %w",
				d, p.ID, days, from.Format("2006-01-02"), ErrInfeasible)
		}

		end, err := p.ProjectEnd(start, d)
		if err != nil {
			return Slot{}, err
		}

		conflict, found := p.firstConflict(start, end, ignore)
		if !found {
			return Slot{Start: start, End: end}, nil
		}
		cur = conflict.End
	}
}

// Book commits [start, end) for key, replacing any previous booking with the same key
func (p *Post) Book(start, end time.Time, key BookingKey) error {
	if end.Before(start) {
		return fmt.Errorf("booking %s on post %s ends before it starts", key, p.ID)
	}
	if conflict, found := p.firstConflict(start, end, key); found {
		return fmt.Errorf("booking %s on post %s conflicts with %s: %w", key, p.ID, conflict.Key, ErrBookingOverlap)
	}

	p.Unbook(key)
	idx := sort.Search(len(p.bookings), func(i int) bool {
		return p.bookings[i].Start.After(start)
	})
	p.bookings = append(p.bookings, Booking{})
	copy(p.bookings[idx+1:], p.bookings[idx:])
	p.bookings[idx] = Booking{Start: start, End: end, Key: key}
	return nil
}

// Unbook removes every booking held by key
func (p *Post) Unbook(key BookingKey) {
	kept := p.bookings[:0]
	for _, b := range p.bookings {
		if b.Key != key {
			kept = append(kept, b)
		}
	}
	p.bookings = kept
}

// Bookings returns a copy of the bookings, ordered by start
func (p *Post) Bookings() []Booking {
	out := make([]Booking, len(p.bookings))
	copy(out, p.bookings)
	return out
}

// BookedDuration returns the total booked time on the post
func (p *Post) BookedDuration() time.Duration {
	var total time.Duration
	for _, b := range p.bookings {
		total += b.Duration()
	}
	return total
}

// ClearBookings removes all bookings
func (p *Post) ClearBookings() {
	p.bookings = nil
}

func (p *Post) unavailableAt(t time.Time) (Interval, bool) {
	for _, iv := range p.unavailability {
		if iv.Start.After(t) {
			break
		}
		if iv.Contains(t) {
			return iv, true
		}
	}
	return Interval{}, false
}

// segmentEnd returns the end of the uninterrupted working segment containing cur.
func (p *Post) segmentEnd(cur time.Time) time.Time {
	day := midnight(cur)
	w := p.WorkingDay
	end := w.End.On(day)
	if w.hasLunch() {
		if lunchStart := w.LunchStart.On(day); cur.Before(lunchStart) && lunchStart.Before(end) {
			end = lunchStart
		}
	}
	for _, iv := range p.unavailability {
		if iv.Start.After(cur) {
			if iv.Start.Before(end) {
				end = iv.Start
			}
			break
		}
	}
	return end
}

func (p *Post) firstConflict(start, end time.Time, ignore BookingKey) (Booking, bool) {
	for _, b := range p.bookings {
		if !b.Start.Before(end) {
			break
		}
		if b.Key != ignore && b.overlaps(start, end) {
			return b, true
		}
	}
	return Booking{}, false
}
