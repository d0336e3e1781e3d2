package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/pitchside/pitchside_backend/internal/availability"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/logs"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

func (s *bookingService) Verify(ctx context.Context, userID uuid.UUID, sessionID string) (*Result, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidSession)
	}

	ctx, span := s.span(ctx, "booking.verify", attribute.String("checkout.session_id", sessionID))
	defer span.End()

	// The client redirect is never trusted; the session is re-read from
	// the provider.
	sess, err := s.payments.GetSession(ctx, sessionID)
	if errors.Is(err, stripe.ErrSessionNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get checkout session")
		logs.FromContext(ctx).Error("get checkout session failed", "session_id", sessionID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	res, err := s.confirm(ctx, sess, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm booking")
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.outcome", string(res.Status)))
	return res, nil
}

func (s *bookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		logs.FromContext(ctx).Warn("rejected webhook", "err", err)
		return ErrInvalidSignature
	}
	if ev.Type != stripe.EventCheckoutCompleted || ev.Session == nil {
		logs.FromContext(ctx).Debug("ignored webhook event", "event_id", ev.ID, "type", ev.Type)
		return nil
	}

	ctx, span := s.span(ctx, "booking.webhook",
		attribute.String("webhook.event_id", ev.ID),
		attribute.String("checkout.session_id", ev.Session.ID))
	defer span.End()

	_, err = s.confirm(ctx, ev.Session, uuid.Nil)
	var ce *ConflictError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce) && !ce.Refunded:
		// Stripe redelivers on a non-2xx answer, and the refund is keyed by
		// the payment intent, so the next delivery retries it.
		span.RecordError(err)
		span.SetStatus(codes.Error, "conflict refund")
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrPaymentIncomplete), errors.Is(err, ErrInvalidSession):
		// Final for this event; a redelivery would end the same way.
		logs.FromContext(ctx).Info("webhook settled without booking",
			"event_id", ev.ID, "session_id", ev.Session.ID, "reason", err)
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm booking")
		return err
	}
}

// sessionSlot is the booking a checkout session paid for.
type sessionSlot struct {
	key      store.BookingKey
	duration float64
}

func parseMetadata(md map[string]string) (*sessionSlot, error) {
	userID, err := uuid.Parse(md[metaUserID])
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidSession, metaUserID)
	}
	venueID, err := uuid.Parse(md[metaVenueID])
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidSession, metaVenueID)
	}
	day, err := availability.ParseDate(md[metaDate])
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidSession, metaDate)
	}
	start, err := availability.ParseClock(md[metaTime])
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidSession, metaTime)
	}
	duration, err := strconv.ParseFloat(md[metaDurationHours], 64)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidSession, metaDurationHours)
	}

	return &sessionSlot{
		key: store.BookingKey{
			UserID:  userID,
			VenueID: venueID,
			Date:    day.Format(availability.DateLayout),
			Time:    availability.FormatClock(start),
		},
		duration: duration,
	}, nil
}

// confirm moves a paid session to a booking. caller is uuid.Nil when the
// session arrived through a signed webhook.
func (s *bookingService) confirm(ctx context.Context, sess *stripe.Session, caller uuid.UUID) (*Result, error) {
	slot, err := parseMetadata(sess.Metadata)
	if err != nil {
		logs.FromContext(ctx).Warn("checkout session without booking metadata", "session_id", sess.ID, "err", err)
		return nil, err
	}

	log := logs.FromContext(ctx).With(
		"session_id", sess.ID,
		"payment_intent", sess.PaymentIntentID,
		"venue_id", slot.key.VenueID,
		"date", slot.key.Date,
		"time", slot.key.Time,
	)

	if caller != uuid.Nil && caller != slot.key.UserID {
		log.Warn("checkout session verified by another user", "caller_id", caller, "payer_id", slot.key.UserID)
		return nil, ErrPayerMismatch
	}
	if !sess.Paid() {
		log.Info("checkout session not paid", "payment_status", sess.PaymentStatus)
		return nil, ErrPaymentIncomplete
	}
	if sess.PaymentIntentID == "" {
		log.Error("paid checkout session has no payment intent")
		return nil, ErrInvalidSession
	}

	if b, err := s.bookingForPayment(ctx, sess.PaymentIntentID); err != nil {
		log.Error("find booking by payment intent failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	} else if b != nil {
		return &Result{Booking: b, Status: OutcomeAlreadyBooked}, nil
	}

	// The payer already holds this slot through an earlier payment; this
	// one is a duplicate and goes back.
	existing, err := s.db.FindActiveBooking(ctx, slot.key)
	switch {
	case err == nil:
		log.Warn("duplicate payment for a held slot, refunding", "booking_id", existing.ID)
		_ = s.refund(ctx, log, sess.PaymentIntentID, map[string]string{
			"reason": "duplicate_payment", "booking_id": existing.ID.String(),
		})
		return &Result{Booking: existing, Status: OutcomeAlreadyBooked}, nil
	case !errors.Is(err, store.ErrNotFound):
		log.Error("find active booking failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	pi := sess.PaymentIntentID
	b := &store.Booking{
		VenueID:         slot.key.VenueID,
		UserID:          slot.key.UserID,
		BookingDate:     slot.key.Date,
		BookingTime:     slot.key.Time,
		DurationHours:   slot.duration,
		TotalPrice:      sess.AmountTotal,
		Status:          store.StatusConfirmed,
		PaymentIntentID: &pi,
	}

	err = s.db.InsertBooking(ctx, b)
	switch {
	case err == nil:
		s.confirmed(ctx, b)
		return &Result{Booking: b, Status: OutcomeBooked}, nil

	case errors.Is(err, store.ErrDuplicatePayment), errors.Is(err, store.ErrConflict):
		// A concurrent verification of this same session may have won. The
		// payment is only refunded once it is known not to hold a booking.
		won, ferr := s.bookingForPayment(ctx, pi)
		if ferr != nil {
			log.Error("find booking by payment intent after conflict failed", "err", ferr)
			return nil, fmt.Errorf("%w: %v", ErrUpstream, ferr)
		}
		if won != nil {
			return &Result{Booking: won, Status: OutcomeAlreadyBooked}, nil
		}
		if errors.Is(err, store.ErrDuplicatePayment) {
			log.Error("payment intent booked but not readable")
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		s.metrics.Conflicts.Add(ctx, 1)
		log.Warn("slot taken by a concurrent booking, refunding")
		refundErr := s.refund(ctx, log, pi, map[string]string{"reason": "slot_conflict"})
		if refundErr != nil {
			log.Error("conflict refund failed, payment needs manual reconciliation", "err", refundErr)
		}
		return nil, &ConflictError{PaymentIntentID: pi, Refunded: refundErr == nil}

	default:
		log.Error("insert booking failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

// bookingForPayment returns nil, nil when no booking uses the intent.
func (s *bookingService) bookingForPayment(ctx context.Context, paymentIntentID string) (*store.Booking, error) {
	b, err := s.db.FindBookingByPaymentIntent(ctx, paymentIntentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// refund returns the payment in full. Failures are counted and returned;
// the caller decides whether they block.
func (s *bookingService) refund(ctx context.Context, log *slog.Logger, paymentIntentID string, metadata map[string]string) error {
	ctx, span := s.span(ctx, "booking.refund", attribute.String("payment.intent_id", paymentIntentID))
	defer span.End()

	err := s.payments.Refund(ctx, paymentIntentID, metadata)
	if err == nil || errors.Is(err, stripe.ErrAlreadyRefunded) {
		log.Info("payment refunded", "payment_intent", paymentIntentID)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "refund")
	s.metrics.RefundFailures.Add(ctx, 1)
	return err
}
