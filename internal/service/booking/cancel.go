package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/availability"
	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

// Cancel releases a booking owned by userID. Paid bookings are refunded
// before the status changes, so a failed refund leaves the booking intact
// and the call can be retried.
func (s *bookingService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*store.Booking, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	b, err := s.db.GetBooking(ctx, bookingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	if b.Status == store.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	start, cutoff, err := s.cancellationWindow(ctx, b)
	if err != nil {
		return nil, err
	}
	if !s.now().Add(cutoff).Before(start) {
		return nil, ErrTooLateToCancel
	}

	log := logs.FromContext(ctx).With(
		"booking_id", b.ID, "venue_id", b.VenueID, "date", b.BookingDate, "time", b.BookingTime)

	refunded := false
	if b.PaymentIntentID != nil && b.TotalPrice > 0 {
		if err := s.refund(ctx, log, *b.PaymentIntentID, map[string]string{
			"reason": "cancelled", "booking_id": b.ID.String(),
		}); err != nil {
			log.Error("cancellation refund failed", "payment_intent", *b.PaymentIntentID, "err", err)
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		refunded = true
	}

	updated, err := s.db.UpdateBookingStatus(ctx, b.ID, store.StatusCancelled)
	if err != nil {
		log.Error("mark booking cancelled failed", "refunded", refunded, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	log.Info("booking cancelled", "refunded", refunded)
	s.publish(ctx, events.BookingCancelledSubject(b.ID), events.BookingCancelled{
		BookingID: b.ID,
		UserID:    b.UserID,
		VenueID:   b.VenueID,
		Refunded:  refunded,
	})
	return updated, nil
}

// cancellationWindow returns the booking start in the venue's timezone and
// how long before it cancellation closes.
func (s *bookingService) cancellationWindow(ctx context.Context, b *store.Booking) (time.Time, time.Duration, error) {
	day, err := availability.ParseDate(b.BookingDate)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("booking %s has invalid date: %w", b.ID, err)
	}
	minutes, err := availability.ParseClock(b.BookingTime)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("booking %s has invalid time: %w", b.ID, err)
	}

	loc := time.UTC
	var cutoff time.Duration

	sched, err := s.schedule.Load(ctx, b.VenueID, day)
	switch {
	case err == nil:
		loc = sched.Location
		if sched.Input.Policy != nil {
			cutoff = time.Duration(sched.Input.Policy.CancellationHours) * time.Hour
		}
	case !errors.Is(err, scheduling.ErrVenueNotFound):
		return time.Time{}, 0, err
	}

	y, m, d := day.Date()
	start := time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc)
	return start, cutoff, nil
}
