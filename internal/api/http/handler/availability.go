package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

type AvailabilityHandler struct {
	svc scheduling.Service
}

func NewAvailabilityHandler(svc scheduling.Service) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

func mapSchedulingError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scheduling.ErrVenueNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, scheduling.ErrInvalidDate):
		return badRequest(c, scheduling.ErrInvalidDate.Error())
	default:
		logs.FromContext(c.Context()).Error("availability lookup failed",
			"venue_id", c.Params("id"), "err", err)
		return internalError(c)
	}
}

// GET /venues/:id/availability?date=YYYY-MM-DD
func (h *AvailabilityHandler) Get(c fiber.Ctx) error {
	return h.respond(c, c.Query("date"))
}

// POST /venues/:id/availability
func (h *AvailabilityHandler) Post(c fiber.Ctx) error {
	var body struct {
		Date string `json:"date"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	return h.respond(c, body.Date)
}

func (h *AvailabilityHandler) respond(c fiber.Ctx, date string) error {
	venueID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid venue id")
	}
	if date == "" {
		return badRequest(c, "date is required")
	}

	slots, err := h.svc.Availability(c.Context(), venueID, date)
	if err != nil {
		return mapSchedulingError(c, err)
	}
	return ok(c, fiber.Map{"availability": slots})
}
