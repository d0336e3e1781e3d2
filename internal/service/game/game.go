// Package game lets players join free pickup games hosted at a venue.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/logs"
)

type JoinResult struct {
	Participant *store.Participant
	// Joined is false when the player was already in the game.
	Joined bool
}

type Service interface {
	Join(ctx context.Context, userID, gameID uuid.UUID) (*JoinResult, error)
}

type gameService struct {
	db     store.Store
	events events.Publisher
}

func New(db store.Store, pub events.Publisher) Service {
	return &gameService{db: db, events: pub}
}

// Join adds userID to a free game. The (game, user) pair is unique, so
// joining twice returns the existing participation and the host is only
// notified for the first one.
func (s *gameService) Join(ctx context.Context, userID, gameID uuid.UUID) (*JoinResult, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	g, err := s.db.GetGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if g.PricePerPlayer > 0 {
		return nil, ErrPaidGame
	}

	existing, err := s.db.GetParticipant(ctx, gameID, userID)
	if err == nil {
		return &JoinResult{Participant: existing}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	if g.MaxPlayers > 0 {
		n, err := s.db.CountParticipants(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("count participants: %w", err)
		}
		if n >= g.MaxPlayers {
			return nil, ErrGameFull
		}
	}

	p := &store.Participant{GameID: gameID, UserID: userID}
	inserted, err := s.db.InsertParticipant(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("join game: %w", err)
	}
	if !inserted {
		// A concurrent request for the same player won.
		if existing, err := s.db.GetParticipant(ctx, gameID, userID); err == nil {
			p = existing
		}
		return &JoinResult{Participant: p}, nil
	}

	logs.FromContext(ctx).Info("player joined game", "game_id", gameID, "player_id", userID)
	if userID != g.HostID {
		if err := s.events.Publish(ctx, events.SubjectGameJoined, events.GameJoined{
			GameID:    g.ID,
			HostID:    g.HostID,
			PlayerID:  userID,
			GameTitle: g.Title,
		}); err != nil {
			logs.FromContext(ctx).Warn("publish event failed", "subject", events.SubjectGameJoined, "err", err)
		}
	}
	return &JoinResult{Participant: p, Joined: true}, nil
}
