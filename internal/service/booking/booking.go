// Package booking turns paid (or free) checkouts into confirmed bookings.
//
// A booking row is inserted only after the payment provider reports the
// session as paid. The insert is optimistic: the store rejects a second
// active booking for the same slot, and the losing payment is refunded.
// No lock is held across the payment round trip.
package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pitchside/pitchside_backend/internal/availability"
	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/logs"
	"github.com/pitchside/pitchside_backend/pkg/observability"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

// Checkout session metadata keys.
const (
	metaUserID        = "user_id"
	metaVenueID       = "venue_id"
	metaDate          = "date"
	metaTime          = "time"
	metaDurationHours = "duration_hours"
	metaPrice         = "price"
	metaEmail         = "email"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type Outcome string

const (
	OutcomeBooked        Outcome = "booked"
	OutcomeAlreadyBooked Outcome = "already_booked"
)

type CheckoutRequest struct {
	UserID        uuid.UUID
	VenueID       uuid.UUID
	Date          string
	Time          string
	DurationHours float64
}

// CheckoutResult carries either a payment session to redirect to, or the
// booking itself when nothing had to be paid.
type CheckoutResult struct {
	SessionID string
	URL       string
	Booking   *store.Booking
	Status    Outcome
}

type Result struct {
	Booking *store.Booking
	Status  Outcome
}

// PaymentProvider is the hosted checkout the booking flow pays through.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req stripe.CheckoutRequest) (*stripe.Session, error)
	GetSession(ctx context.Context, sessionID string) (*stripe.Session, error)
	Refund(ctx context.Context, paymentIntentID string, metadata map[string]string) error
	ParseWebhook(payload []byte, signature string) (*stripe.WebhookEvent, error)
	Currency() string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Checkout validates the request against the venue schedule and starts a
	// payment session. Free venues are booked immediately.
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	// Verify confirms the booking paid for by sessionID. Calling it again
	// for the same session returns the same booking.
	Verify(ctx context.Context, userID uuid.UUID, sessionID string) (*Result, error)
	// HandleWebhook applies a signed provider event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*store.Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*store.Booking, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type bookingService struct {
	db       store.Store
	schedule scheduling.Service
	payments PaymentProvider
	events   events.Publisher
	metrics  *observability.BookingInstruments
	now      func() time.Time
}

func New(
	db store.Store,
	schedule scheduling.Service,
	payments PaymentProvider,
	pub events.Publisher,
	metrics *observability.BookingInstruments,
) Service {
	return &bookingService{
		db:       db,
		schedule: schedule,
		payments: payments,
		events:   pub,
		metrics:  metrics,
		now:      time.Now,
	}
}

// slotRequest is a checkout request that passed validation.
type slotRequest struct {
	user     *store.User
	venue    *store.Venue
	key      store.BookingKey
	duration float64
	price    int64
}

func (r *slotRequest) metadata() map[string]string {
	return map[string]string{
		metaUserID:        r.key.UserID.String(),
		metaVenueID:       r.key.VenueID.String(),
		metaDate:          r.key.Date,
		metaTime:          r.key.Time,
		metaDurationHours: strconv.FormatFloat(r.duration, 'f', -1, 64),
		metaPrice:         strconv.FormatInt(r.price, 10),
		metaEmail:         r.user.Email,
	}
}

func (s *bookingService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	slot, existing, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &CheckoutResult{Booking: existing, Status: OutcomeAlreadyBooked}, nil
	}

	if slot.price == 0 {
		res, err := s.bookFree(ctx, slot)
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{Booking: res.Booking, Status: res.Status}, nil
	}

	log := logs.FromContext(ctx).With(
		"venue_id", slot.key.VenueID, "date", slot.key.Date, "time", slot.key.Time)

	sess, err := s.payments.CreateCheckoutSession(ctx, stripe.CheckoutRequest{
		ProductName: fmt.Sprintf("%s, %s %s (%sh)", slot.venue.Name, slot.key.Date, slot.key.Time,
			strconv.FormatFloat(slot.duration, 'f', -1, 64)),
		Amount:        slot.price,
		CustomerEmail: slot.user.Email,
		Metadata:      slot.metadata(),
	})
	if err != nil {
		log.Error("create checkout session failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	log.Info("checkout session created", "session_id", sess.ID, "amount", slot.price)
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// prepare validates req. When the caller already holds this exact slot the
// existing booking is returned instead.
func (s *bookingService) prepare(ctx context.Context, req CheckoutRequest) (*slotRequest, *store.Booking, error) {
	if req.UserID == uuid.Nil {
		return nil, nil, ErrUnauthenticated
	}
	if req.VenueID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: venueId is required", ErrValidation)
	}
	day, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: date must be formatted YYYY-MM-DD", ErrValidation)
	}
	start, err := availability.ParseClock(req.Time)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: time must be formatted HH:MM", ErrValidation)
	}
	if req.DurationHours <= 0 || math.IsNaN(req.DurationHours) || math.IsInf(req.DurationHours, 0) {
		return nil, nil, fmt.Errorf("%w: durationHours must be positive", ErrValidation)
	}

	user, err := s.db.GetUser(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	key := store.BookingKey{
		UserID:  req.UserID,
		VenueID: req.VenueID,
		Date:    day.Format(availability.DateLayout),
		Time:    availability.FormatClock(start),
	}
	existing, err := s.db.FindActiveBooking(ctx, key)
	if err == nil {
		return nil, existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("find existing booking: %w", err)
	}

	sched, err := s.schedule.Load(ctx, req.VenueID, day)
	if err != nil {
		return nil, nil, err
	}

	err = availability.Validate(sched.Input, availability.Request{
		Date:          day,
		Time:          key.Time,
		DurationHours: req.DurationHours,
	}, sched.Today(s.now()))
	switch {
	case errors.Is(err, availability.ErrSlotTaken):
		return nil, nil, ErrSlotConflict
	case err != nil:
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return &slotRequest{
		user:     user,
		venue:    sched.Venue,
		key:      key,
		duration: req.DurationHours,
		price:    int64(math.Round(float64(sched.Venue.PricePerHour) * req.DurationHours)),
	}, nil, nil
}

// bookFree inserts a zero-priced booking with the same guards as a paid one.
func (s *bookingService) bookFree(ctx context.Context, slot *slotRequest) (*Result, error) {
	b := &store.Booking{
		VenueID:       slot.key.VenueID,
		UserID:        slot.key.UserID,
		BookingDate:   slot.key.Date,
		BookingTime:   slot.key.Time,
		DurationHours: slot.duration,
		Status:        store.StatusConfirmed,
	}

	err := s.db.InsertBooking(ctx, b)
	if errors.Is(err, store.ErrConflict) {
		if existing, ferr := s.db.FindActiveBooking(ctx, slot.key); ferr == nil {
			return &Result{Booking: existing, Status: OutcomeAlreadyBooked}, nil
		}
		s.metrics.Conflicts.Add(ctx, 1)
		return nil, ErrSlotConflict
	}
	if err != nil {
		logs.FromContext(ctx).Error("insert free booking failed",
			"venue_id", slot.key.VenueID, "date", slot.key.Date, "time", slot.key.Time, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.confirmed(ctx, b)
	return &Result{Booking: b, Status: OutcomeBooked}, nil
}

// confirmed records a new booking and dispatches its side effects.
func (s *bookingService) confirmed(ctx context.Context, b *store.Booking) {
	s.metrics.Confirmed.Add(ctx, 1)
	logs.FromContext(ctx).Info("booking confirmed",
		"booking_id", b.ID, "venue_id", b.VenueID, "date", b.BookingDate, "time", b.BookingTime)

	s.publish(ctx, events.BookingConfirmedSubject(b.ID), events.BookingConfirmed{
		BookingID:     b.ID,
		UserID:        b.UserID,
		VenueID:       b.VenueID,
		Date:          b.BookingDate,
		Time:          b.BookingTime,
		DurationHours: b.DurationHours,
		TotalPrice:    b.TotalPrice,
		Currency:      s.payments.Currency(),
	})
}

func (s *bookingService) publish(ctx context.Context, subject string, v any) {
	if err := s.events.Publish(ctx, subject, v); err != nil {
		logs.FromContext(ctx).Warn("publish event failed", "subject", subject, "err", err)
	}
}

func (s *bookingService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*store.Booking, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	bookings, err := s.db.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*store.Booking{}
	}
	return bookings, nil
}

func (s *bookingService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.metrics.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
