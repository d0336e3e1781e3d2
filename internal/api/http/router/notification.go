package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pitchside/pitchside_backend/internal/api/http/handler"
)

func (r *Router) registerNotificationRoutes(api fiber.Router, nh *handler.NotificationHandler, authRequired fiber.Handler) {
	api.Get("/notifications", authRequired, nh.List)
}
