package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // venue timezones resolve in minimal images

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/availability"
	"github.com/pitchside/pitchside_backend/internal/store"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Schedule is everything the availability engine needs for one venue and
// date, plus the venue itself.
type Schedule struct {
	Venue    *store.Venue
	Date     time.Time
	Location *time.Location
	Input    availability.Input
}

// Today is the current calendar date in the venue's timezone.
func (s *Schedule) Today(now time.Time) time.Time {
	return now.In(s.Location)
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Availability returns the slot list for a YYYY-MM-DD date.
	Availability(ctx context.Context, venueID uuid.UUID, date string) ([]availability.Slot, error)
	// Load reads the venue schedule inputs for day.
	Load(ctx context.Context, venueID uuid.UUID, day time.Time) (*Schedule, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type schedulingService struct {
	db       store.Store
	defaults config.DefaultPolicy
}

func New(db store.Store, defaults config.DefaultPolicy) Service {
	return &schedulingService{db: db, defaults: defaults}
}

func (s *schedulingService) Availability(ctx context.Context, venueID uuid.UUID, date string) ([]availability.Slot, error) {
	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	sched, err := s.Load(ctx, venueID, day)
	if err != nil {
		return nil, err
	}
	return availability.Compute(sched.Input), nil
}

func (s *schedulingService) Load(ctx context.Context, venueID uuid.UUID, day time.Time) (*Schedule, error) {
	venue, err := s.db.GetVenue(ctx, venueID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !venue.IsActive) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load venue: %w", err)
	}

	date := day.Format(availability.DateLayout)

	blocked, err := s.db.IsDateBlocked(ctx, venueID, date)
	if err != nil {
		return nil, fmt.Errorf("load blocked dates: %w", err)
	}

	var hours *availability.DayHours
	h, err := s.db.GetVenueHours(ctx, venueID, int(day.Weekday()))
	switch {
	case err == nil:
		hours = &availability.DayHours{
			DayOfWeek: h.DayOfWeek,
			OpenTime:  h.OpenTime,
			CloseTime: h.CloseTime,
			IsClosed:  h.IsClosed,
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load venue hours: %w", err)
	}

	policy, err := s.policy(ctx, venueID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.db.ListActiveBookings(ctx, venueID, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	reservations := make([]availability.Reservation, 0, len(bookings))
	for _, b := range bookings {
		reservations = append(reservations, availability.Reservation{
			Time:          b.BookingTime,
			DurationHours: b.DurationHours,
		})
	}

	loc, err := time.LoadLocation(venue.Timezone)
	if err != nil || venue.Timezone == "" {
		loc = time.UTC
	}

	return &Schedule{
		Venue:    venue,
		Date:     day,
		Location: loc,
		Input: availability.Input{
			Hours:    hours,
			Policy:   policy,
			Bookings: reservations,
			Blocked:  blocked,
		},
	}, nil
}

// policy returns the venue's policy, or the configured default when the
// venue has none.
func (s *schedulingService) policy(ctx context.Context, venueID uuid.UUID) (*availability.Policy, error) {
	p, err := s.db.GetVenuePolicy(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load venue policy: %w", err)
	}
	if p == nil {
		return &availability.Policy{
			TimeSlotIncrement: s.defaults.TimeSlotIncrement,
			MinDurationHours:  s.defaults.MinDurationHours,
		}, nil
	}
	return &availability.Policy{
		TimeSlotIncrement: p.TimeSlotIncrement,
		MinDurationHours:  p.MinDurationHours,
		MaxDurationHours:  p.MaxDurationHours,
		CancellationHours: p.CancellationHours,
		BufferMinutes:     p.BufferMinutes,
		BookingWindowDays: p.BookingWindowDays,
	}, nil
}
