package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	pasetotoken "github.com/pitchside/pitchside_backend/pkg/paseto"
)

func ok(c fiber.Ctx, body fiber.Map) error {
	return c.JSON(body)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

func paymentRequired(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": msg})
}

func forbidden(c fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
}

func notFound(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func conflict(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

func badGateway(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": msg})
}

func internalError(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func userIDFromClaims(c fiber.Ctx) (uuid.UUID, bool) {
	claims, found := pasetotoken.ClaimsFromFiber(c)
	if !found {
		return uuid.UUID{}, false
	}
	return claims.UserID, true
}
