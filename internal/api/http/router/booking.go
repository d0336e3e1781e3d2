package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pitchside/pitchside_backend/internal/api/http/handler"
)

func (r *Router) registerBookingRoutes(api fiber.Router, bh *handler.BookingHandler, authRequired fiber.Handler) {
	bookings := api.Group("/bookings", authRequired)
	bookings.Get("/", bh.List)
	bookings.Post("/checkout", bh.Checkout)
	bookings.Post("/verify", bh.Verify)
	bookings.Post("/:id/cancel", bh.Cancel)
}
