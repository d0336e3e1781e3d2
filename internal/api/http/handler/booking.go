package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/service/booking"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

type BookingHandler struct {
	svc booking.Service
}

func NewBookingHandler(svc booking.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// mapBookingError keeps client messages minimal; the service has already
// logged the venue, slot and payment identifiers.
func mapBookingError(c fiber.Ctx, err error) error {
	var ce *booking.ConflictError
	switch {
	case errors.As(err, &ce):
		if ce.Refunded {
			return conflict(c, "this time slot was just booked by someone else; your payment has been refunded, please pick another slot")
		}
		return conflict(c, "this time slot was just booked by someone else; your refund is being processed, please pick another slot")
	case errors.Is(err, booking.ErrSlotConflict):
		return conflict(c, booking.ErrSlotConflict.Error()+", please pick another slot")
	case errors.Is(err, booking.ErrValidation):
		return badRequest(c, err.Error())
	case errors.Is(err, booking.ErrInvalidSession):
		return badRequest(c, booking.ErrInvalidSession.Error())
	case errors.Is(err, scheduling.ErrInvalidDate):
		return badRequest(c, scheduling.ErrInvalidDate.Error())
	case errors.Is(err, booking.ErrUnauthenticated):
		return unauthorized(c)
	case errors.Is(err, booking.ErrPaymentIncomplete):
		return paymentRequired(c, booking.ErrPaymentIncomplete.Error())
	case errors.Is(err, booking.ErrPayerMismatch), errors.Is(err, booking.ErrForbidden):
		return forbidden(c)
	case errors.Is(err, booking.ErrNotFound):
		return notFound(c, booking.ErrNotFound.Error())
	case errors.Is(err, scheduling.ErrVenueNotFound):
		return notFound(c, scheduling.ErrVenueNotFound.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled), errors.Is(err, booking.ErrTooLateToCancel):
		return conflict(c, err.Error())
	case errors.Is(err, booking.ErrUpstream):
		return badGateway(c, booking.ErrUpstream.Error())
	default:
		logs.FromContext(c.Context()).Error("booking request failed", "path", c.Path(), "err", err)
		return internalError(c)
	}
}

// POST /bookings/checkout
func (h *BookingHandler) Checkout(c fiber.Ctx) error {
	userID, found := userIDFromClaims(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		VenueID       string  `json:"venueId"`
		Date          string  `json:"date"`
		Time          string  `json:"time"`
		DurationHours float64 `json:"durationHours"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	venueID, err := uuid.Parse(body.VenueID)
	if err != nil {
		return badRequest(c, "invalid venueId")
	}

	res, err := h.svc.Checkout(c.Context(), booking.CheckoutRequest{
		UserID:        userID,
		VenueID:       venueID,
		Date:          body.Date,
		Time:          body.Time,
		DurationHours: body.DurationHours,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	if res.Booking != nil {
		return ok(c, fiber.Map{"booking": res.Booking, "status": res.Status})
	}
	return ok(c, fiber.Map{"sessionId": res.SessionID, "url": res.URL})
}

// POST /bookings/verify
func (h *BookingHandler) Verify(c fiber.Ctx) error {
	userID, found := userIDFromClaims(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Verify(c.Context(), userID, body.SessionID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return ok(c, fiber.Map{"booking": res.Booking, "status": res.Status})
}

// POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c fiber.Ctx) error {
	userID, found := userIDFromClaims(c)
	if !found {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid booking id")
	}

	b, err := h.svc.Cancel(c.Context(), userID, id)
	if err != nil {
		return mapBookingError(c, err)
	}
	return ok(c, fiber.Map{"booking": b})
}

// GET /bookings
func (h *BookingHandler) List(c fiber.Ctx) error {
	userID, found := userIDFromClaims(c)
	if !found {
		return unauthorized(c)
	}

	bookings, err := h.svc.ListForUser(c.Context(), userID)
	if err != nil {
		return mapBookingError(c, err)
	}
	return ok(c, fiber.Map{"bookings": bookings})
}
