// Package events carries the one-way side effects of the booking flow.
// Publishing never blocks the caller on delivery and a failed publish is
// only logged by the caller.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	SubjectBookingConfirmed = "pitchside.booking.confirmed"
	SubjectBookingCancelled = "pitchside.booking.cancelled"
	SubjectGameJoined       = "pitchside.game.joined"

	headerRequestID = "X-Request-ID"
)

// BookingConfirmedSubject is the per-booking subject workers subscribe to
// with a trailing wildcard.
func BookingConfirmedSubject(id uuid.UUID) string {
	return SubjectBookingConfirmed + "." + id.String()
}

func BookingCancelledSubject(id uuid.UUID) string {
	return SubjectBookingCancelled + "." + id.String()
}

type BookingConfirmed struct {
	BookingID     uuid.UUID `json:"booking_id"`
	UserID        uuid.UUID `json:"user_id"`
	VenueID       uuid.UUID `json:"venue_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	DurationHours float64   `json:"duration_hours"`
	TotalPrice    int64     `json:"total_price"`
	Currency      string    `json:"currency"`
}

type BookingCancelled struct {
	BookingID uuid.UUID `json:"booking_id"`
	UserID    uuid.UUID `json:"user_id"`
	VenueID   uuid.UUID `json:"venue_id"`
	Refunded  bool      `json:"refunded"`
}

type GameJoined struct {
	GameID    uuid.UUID `json:"game_id"`
	HostID    uuid.UUID `json:"host_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	GameTitle string    `json:"game_title"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Handler receives the raw JSON payload of one message.
type Handler func(ctx context.Context, subject string, data []byte)

type Subscriber interface {
	// Subscribe registers h for subject, which may end in "*" or ">".
	Subscribe(subject string, h Handler) error
}

// Bus is a Publisher that can also deliver to local workers.
type Bus interface {
	Publisher
	Subscriber
}

// Decode unmarshals a payload into T.
func Decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode event: %w", err)
	}
	return v, nil
}

// Nop drops every message.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
