// Package availability computes bookable start times for a venue on a
// single calendar date. Everything here is a pure function of its inputs.
package availability

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultIncrementMinutes = 60
	DefaultMinDurationHours = 1.0

	DateLayout = "2006-01-02"
)

// DayHours is a venue's schedule for one weekday (0 = Sunday).
type DayHours struct {
	DayOfWeek int
	OpenTime  string
	CloseTime string
	IsClosed  bool
}

// Policy holds the scheduling parameters of a venue. A nil Policy means the
// venue has none and the package defaults apply.
type Policy struct {
	TimeSlotIncrement int
	MinDurationHours  float64
	MaxDurationHours  float64
	CancellationHours int
	BufferMinutes     int
	BookingWindowDays int
}

// Reservation is an existing, non-cancelled booking on the date being
// computed.
type Reservation struct {
	Time          string
	DurationHours float64
}

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type Input struct {
	Hours    *DayHours
	Policy   *Policy
	Bookings []Reservation
	Blocked  bool
}

// Increment returns the effective slot increment in minutes. A stored
// non-positive increment is returned as is and yields no slots.
func (p *Policy) Increment() int {
	if p == nil {
		return DefaultIncrementMinutes
	}
	return p.TimeSlotIncrement
}

// MinDuration returns the effective minimum booking duration in hours.
func (p *Policy) MinDuration() float64 {
	if p == nil || p.MinDurationHours <= 0 {
		return DefaultMinDurationHours
	}
	return p.MinDurationHours
}

// Compute returns the ordered candidate start times for the date described
// by in. Blocked or closed days produce an empty list.
func Compute(in Input) []Slot {
	slots := []Slot{}
	if in.Blocked || in.Hours == nil || in.Hours.IsClosed {
		return slots
	}

	open, err := ParseClock(in.Hours.OpenTime)
	if err != nil {
		return slots
	}
	closing, err := ParseClock(in.Hours.CloseTime)
	if err != nil {
		return slots
	}

	increment := in.Policy.Increment()
	minDuration := HoursToMinutes(in.Policy.MinDuration())
	if increment <= 0 || open+minDuration > closing {
		return slots
	}

	busy := make([]interval, 0, len(in.Bookings))
	for _, b := range in.Bookings {
		start, err := ParseClock(b.Time)
		if err != nil {
			continue
		}
		busy = append(busy, interval{start: start, end: start + HoursToMinutes(b.DurationHours)})
	}

	for start := open; start+minDuration <= closing; start += increment {
		slots = append(slots, Slot{
			Time:      FormatClock(start),
			Available: !occupied(busy, start),
		})
	}
	return slots
}

type interval struct {
	start, end int
}

func occupied(busy []interval, t int) bool {
	for _, iv := range busy {
		if t >= iv.start && t < iv.end {
			return true
		}
	}
	return false
}

// Overlaps reports whether two half-open ranges [aStart, aStart+aDur) and
// [bStart, bStart+bDur), all in minutes, intersect.
func Overlaps(aStart, aDur, bStart, bDur int) bool {
	return aStart < bStart+bDur && bStart < aStart+aDur
}

// ParseClock converts "HH:MM" or "HH:MM:SS" to minutes since midnight.
// "24:00" is accepted as end of day.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func HoursToMinutes(h float64) int {
	return int(math.Round(h * 60))
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}
