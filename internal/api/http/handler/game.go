package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/service/game"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

type GameHandler struct {
	svc game.Service
}

func NewGameHandler(svc game.Service) *GameHandler {
	return &GameHandler{svc: svc}
}

func mapGameError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, game.ErrGameFull):
		return conflict(c, err.Error())
	case errors.Is(err, game.ErrPaidGame):
		return badRequest(c, err.Error())
	case errors.Is(err, game.ErrUnauthenticated):
		return unauthorized(c)
	default:
		logs.FromContext(c.Context()).Error("join game failed", "err", err)
		return internalError(c)
	}
}

// POST /games/join
func (h *GameHandler) Join(c fiber.Ctx) error {
	userID, found := userIDFromClaims(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		GameID string `json:"gameId"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	gameID, err := uuid.Parse(body.GameID)
	if err != nil {
		return badRequest(c, "invalid gameId")
	}

	res, err := h.svc.Join(c.Context(), userID, gameID)
	if err != nil {
		return mapGameError(c, err)
	}
	return ok(c, fiber.Map{"participant": res.Participant, "joined": res.Joined})
}
