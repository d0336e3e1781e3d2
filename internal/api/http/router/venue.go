package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pitchside/pitchside_backend/internal/api/http/handler"
)

func (r *Router) registerVenueRoutes(api fiber.Router, ah *handler.AvailabilityHandler) {
	// Public: availability is shown before sign-in
	venues := api.Group("/venues")
	venues.Get("/:id/availability", ah.Get)
	venues.Post("/:id/availability", ah.Post)
}
