package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/store"
)

const (
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingCancelled = "booking_cancelled"
	TypeGameJoined       = "game_joined"

	DefaultLimit = 20
	MaxLimit     = 100
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	UserID uuid.UUID
	Type   string
	Title  string
	Body   *string
	Data   map[string]any
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*store.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*store.Notification, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type notificationService struct {
	db store.Store
}

func New(db store.Store) Service {
	return &notificationService{db: db}
}

func (s *notificationService) Create(ctx context.Context, req CreateRequest) (*store.Notification, error) {
	if req.UserID == uuid.Nil || req.Type == "" || req.Title == "" {
		return nil, ErrInvalidRequest
	}

	n := &store.Notification{
		UserID: req.UserID,
		Type:   req.Type,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
	}
	if err := s.db.InsertNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// List returns the newest notifications first.
func (s *notificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*store.Notification, error) {
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	notifs, err := s.db.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if notifs == nil {
		notifs = []*store.Notification{}
	}
	return notifs, nil
}
