// Package store defines the persistence contract used by the booking
// services and the entities it returns.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert violates the active-booking
	// uniqueness or overlap constraint.
	ErrConflict = errors.New("conflicting active booking")
	// ErrDuplicatePayment is returned when a booking for the same payment
	// intent already exists.
	ErrDuplicatePayment = errors.New("payment intent already used")
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

type Venue struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Name         string    `json:"name"`
	PricePerHour int64     `json:"price_per_hour"` // minor units
	Timezone     string    `json:"timezone"`
	IsActive     bool      `json:"is_active"`
}

type VenueHours struct {
	VenueID   uuid.UUID `json:"venue_id"`
	DayOfWeek int       `json:"day_of_week"`
	OpenTime  string    `json:"open_time"`
	CloseTime string    `json:"close_time"`
	IsClosed  bool      `json:"is_closed"`
}

type BlockedDate struct {
	VenueID uuid.UUID `json:"venue_id"`
	Date    string    `json:"date"`
	Reason  *string   `json:"reason,omitempty"`
}

type VenuePolicy struct {
	VenueID           uuid.UUID `json:"venue_id"`
	MinDurationHours  float64   `json:"min_duration_hours"`
	MaxDurationHours  float64   `json:"max_duration_hours"`
	TimeSlotIncrement int       `json:"time_slot_increment"`
	CancellationHours int       `json:"cancellation_hours"`
	BufferMinutes     int       `json:"buffer_minutes"`
	BookingWindowDays int       `json:"booking_window_days"`
}

type Booking struct {
	ID              uuid.UUID     `json:"id"`
	VenueID         uuid.UUID     `json:"venue_id"`
	UserID          uuid.UUID     `json:"user_id"`
	BookingDate     string        `json:"booking_date"`
	BookingTime     string        `json:"booking_time"`
	DurationHours   float64       `json:"duration_hours"`
	TotalPrice      int64         `json:"total_price"`
	Status          BookingStatus `json:"status"`
	PaymentIntentID *string       `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Phone    *string   `json:"phone,omitempty"`
}

type Game struct {
	ID             uuid.UUID `json:"id"`
	HostID         uuid.UUID `json:"host_id"`
	VenueID        uuid.UUID `json:"venue_id"`
	Title          string    `json:"title"`
	GameDate       string    `json:"game_date"`
	GameTime       string    `json:"game_time"`
	PricePerPlayer int64     `json:"price_per_player"`
	MaxPlayers     int       `json:"max_players"`
}

type Participant struct {
	GameID   uuid.UUID `json:"game_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      *string        `json:"body,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// BookingKey identifies a reservation request for idempotence checks.
type BookingKey struct {
	UserID  uuid.UUID
	VenueID uuid.UUID
	Date    string
	Time    string
}

// Store is the persistence layer. Implementations must make InsertBooking
// fail atomically with ErrConflict when another active booking holds the
// same (venue, date, time) or overlaps it by duration, and with
// ErrDuplicatePayment when the payment intent is already booked.
type Store interface {
	GetVenue(ctx context.Context, id uuid.UUID) (*Venue, error)
	GetVenueHours(ctx context.Context, venueID uuid.UUID, dayOfWeek int) (*VenueHours, error)
	IsDateBlocked(ctx context.Context, venueID uuid.UUID, date string) (bool, error)
	// GetVenuePolicy returns (nil, nil) when the venue has no policy.
	GetVenuePolicy(ctx context.Context, venueID uuid.UUID) (*VenuePolicy, error)

	ListActiveBookings(ctx context.Context, venueID uuid.UUID, date string) ([]*Booking, error)
	FindActiveBooking(ctx context.Context, key BookingKey) (*Booking, error)
	FindBookingByPaymentIntent(ctx context.Context, paymentIntentID string) (*Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]*Booking, error)
	InsertBooking(ctx context.Context, b *Booking) error
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status BookingStatus) (*Booking, error)

	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	GetGame(ctx context.Context, id uuid.UUID) (*Game, error)
	GetParticipant(ctx context.Context, gameID, userID uuid.UUID) (*Participant, error)
	CountParticipants(ctx context.Context, gameID uuid.UUID) (int, error)
	// InsertParticipant reports false when the user had already joined.
	InsertParticipant(ctx context.Context, p *Participant) (bool, error)

	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
}

// NewID returns a time-ordered identifier for new rows.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
