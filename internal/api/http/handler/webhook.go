package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/pitchside/pitchside_backend/internal/service/booking"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

const headerStripeSignature = "Stripe-Signature"

type WebhookHandler struct {
	svc booking.Service
}

func NewWebhookHandler(svc booking.Service) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// POST /webhooks/stripe
//
// Any non-2xx answer makes the provider redeliver, so only failures worth
// retrying are reported as errors.
func (h *WebhookHandler) Stripe(c fiber.Ctx) error {
	err := h.svc.HandleWebhook(c.Context(), c.Body(), c.Get(headerStripeSignature))
	switch {
	case err == nil:
		return ok(c, fiber.Map{"received": true})
	case errors.Is(err, booking.ErrInvalidSignature):
		return badRequest(c, booking.ErrInvalidSignature.Error())
	case errors.Is(err, booking.ErrUpstream):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": booking.ErrUpstream.Error()})
	default:
		logs.FromContext(c.Context()).Error("webhook processing failed", "err", err)
		return internalError(c)
	}
}
