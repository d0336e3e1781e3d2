package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pitchside/pitchside_backend/internal/api/http/handler"
)

func (r *Router) registerGameRoutes(api fiber.Router, gh *handler.GameHandler, authRequired fiber.Handler) {
	api.Post("/games/join", authRequired, gh.Join)
}
