package game

import "errors"

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrGameFull        = errors.New("game is full")
	ErrPaidGame        = errors.New("game requires payment")
	ErrUnauthenticated = errors.New("authentication required")
)
