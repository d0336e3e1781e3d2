package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pitchside/pitchside_backend/internal/service/notification"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// GET /notifications?limit=N
func (h *NotificationHandler) List(c fiber.Ctx) error {
	userID, found := userIDFromClaims(c)
	if !found {
		return unauthorized(c)
	}

	var q struct {
		Limit int `query:"limit"`
	}
	_ = c.Bind().Query(&q)

	notifs, err := h.svc.List(c.Context(), userID, q.Limit)
	if err != nil {
		logs.FromContext(c.Context()).Error("list notifications failed", "user_id", userID, "err", err)
		return internalError(c)
	}
	return ok(c, fiber.Map{"notifications": notifs})
}
