package availability

import (
	"errors"
	"time"
)

var (
	ErrDateBlocked          = errors.New("venue is closed on this date")
	ErrVenueClosed          = errors.New("venue is not open on this day")
	ErrDateInPast           = errors.New("date is in the past")
	ErrOutsideBookingWindow = errors.New("date is beyond the booking window")
	ErrDurationTooShort     = errors.New("duration is shorter than the venue minimum")
	ErrDurationTooLong      = errors.New("duration is longer than the venue maximum")
	ErrNotASlot             = errors.New("start time is not a bookable slot")
	ErrPastClosing          = errors.New("booking would end after closing time")
	ErrSlotTaken            = errors.New("time slot overlaps an existing booking")
)

// Request describes a booking a customer wants to make.
type Request struct {
	Date          time.Time
	Time          string
	DurationHours float64
}

// IsRuleViolation reports whether err is one of the booking rule errors
// returned by Validate.
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrDateBlocked, ErrVenueClosed, ErrDateInPast, ErrOutsideBookingWindow,
		ErrDurationTooShort, ErrDurationTooLong, ErrNotASlot, ErrPastClosing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Validate checks req against the venue schedule in in. today is the
// current calendar date in the venue's timezone.
func Validate(in Input, req Request, today time.Time) error {
	if in.Blocked {
		return ErrDateBlocked
	}
	if in.Hours == nil || in.Hours.IsClosed {
		return ErrVenueClosed
	}

	day := truncateDay(req.Date)
	today = truncateDay(today)
	if day.Before(today) {
		return ErrDateInPast
	}
	if in.Policy != nil && in.Policy.BookingWindowDays > 0 &&
		day.After(today.AddDate(0, 0, in.Policy.BookingWindowDays)) {
		return ErrOutsideBookingWindow
	}

	if req.DurationHours < in.Policy.MinDuration() {
		return ErrDurationTooShort
	}
	if in.Policy != nil && in.Policy.MaxDurationHours > 0 && req.DurationHours > in.Policy.MaxDurationHours {
		return ErrDurationTooLong
	}

	start, err := ParseClock(req.Time)
	if err != nil {
		return ErrNotASlot
	}
	closing, err := ParseClock(in.Hours.CloseTime)
	if err != nil {
		return ErrVenueClosed
	}

	onGrid := false
	for _, s := range Compute(in) {
		if s.Time == FormatClock(start) {
			onGrid = true
			break
		}
	}
	if !onGrid {
		return ErrNotASlot
	}

	duration := HoursToMinutes(req.DurationHours)
	if start+duration > closing {
		return ErrPastClosing
	}

	for _, b := range in.Bookings {
		bStart, err := ParseClock(b.Time)
		if err != nil {
			continue
		}
		if Overlaps(start, duration, bStart, HoursToMinutes(b.DurationHours)) {
			return ErrSlotTaken
		}
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
