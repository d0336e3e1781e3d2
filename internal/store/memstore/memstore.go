// Package memstore is an in-memory store.Store used by tests and by local
// development when no database is configured.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/internal/availability"
	"github.com/pitchside/pitchside_backend/internal/store"
)

type hoursKey struct {
	venueID uuid.UUID
	day     int
}

type dateKey struct {
	venueID uuid.UUID
	date    string
}

type participantKey struct {
	gameID uuid.UUID
	userID uuid.UUID
}

// Store keeps every table in maps guarded by a single mutex.
type Store struct {
	mu sync.Mutex

	venues        map[uuid.UUID]store.Venue
	hours         map[hoursKey]store.VenueHours
	blocked       map[dateKey]store.BlockedDate
	policies      map[uuid.UUID]store.VenuePolicy
	bookings      map[uuid.UUID]store.Booking
	users         map[uuid.UUID]store.User
	games         map[uuid.UUID]store.Game
	participants  map[participantKey]store.Participant
	notifications []store.Notification

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		venues:       make(map[uuid.UUID]store.Venue),
		hours:        make(map[hoursKey]store.VenueHours),
		blocked:      make(map[dateKey]store.BlockedDate),
		policies:     make(map[uuid.UUID]store.VenuePolicy),
		bookings:     make(map[uuid.UUID]store.Booking),
		users:        make(map[uuid.UUID]store.User),
		games:        make(map[uuid.UUID]store.Game),
		participants: make(map[participantKey]store.Participant),
		now:          time.Now,
	}
}

// ---------------------------------------------------------------------------
// Seeding
// ---------------------------------------------------------------------------

func (s *Store) PutVenue(v store.Venue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[v.ID] = v
}

func (s *Store) PutHours(h store.VenueHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hours[hoursKey{h.VenueID, h.DayOfWeek}] = h
}

func (s *Store) PutPolicy(p store.VenuePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.VenueID] = p
}

func (s *Store) BlockDate(b store.BlockedDate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[dateKey{b.VenueID, b.Date}] = b
}

func (s *Store) PutUser(u store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) PutGame(g store.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

// Bookings returns a snapshot of every booking row.
func (s *Store) Bookings() []store.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	return out
}

// Notifications returns a snapshot of every notification row.
func (s *Store) Notifications() []store.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Notification(nil), s.notifications...)
}

// ---------------------------------------------------------------------------
// Venues
// ---------------------------------------------------------------------------

func (s *Store) GetVenue(_ context.Context, id uuid.UUID) (*store.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) GetVenueHours(_ context.Context, venueID uuid.UUID, dayOfWeek int) (*store.VenueHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hours[hoursKey{venueID, dayOfWeek}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &h, nil
}

func (s *Store) IsDateBlocked(_ context.Context, venueID uuid.UUID, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocked[dateKey{venueID, date}]
	return ok, nil
}

func (s *Store) GetVenuePolicy(_ context.Context, venueID uuid.UUID) (*store.VenuePolicy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[venueID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

func (s *Store) ListActiveBookings(_ context.Context, venueID uuid.UUID, date string) ([]*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Booking
	for _, b := range s.bookings {
		if b.VenueID == venueID && b.BookingDate == date && b.Status != store.StatusCancelled {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTime < out[j].BookingTime })
	return out, nil
}

func (s *Store) FindActiveBooking(_ context.Context, key store.BookingKey) (*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.UserID == key.UserID && b.VenueID == key.VenueID &&
			b.BookingDate == key.Date && b.BookingTime == key.Time &&
			b.Status != store.StatusCancelled {
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindBookingByPaymentIntent(_ context.Context, paymentIntentID string) (*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.PaymentIntentID != nil && *b.PaymentIntentID == paymentIntentID {
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetBooking(_ context.Context, id uuid.UUID) (*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ListUserBookings(_ context.Context, userID uuid.UUID) ([]*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingDate != out[j].BookingDate {
			return out[i].BookingDate > out[j].BookingDate
		}
		return out[i].BookingTime > out[j].BookingTime
	})
	return out, nil
}

// InsertBooking enforces the same constraints as the Postgres schema: one
// booking per payment intent, one active booking per (venue, date, time)
// and no duration overlap.
func (s *Store) InsertBooking(_ context.Context, b *store.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, err := availability.ParseClock(b.BookingTime)
	if err != nil {
		return err
	}
	dur := availability.HoursToMinutes(b.DurationHours)

	if b.PaymentIntentID != nil {
		for _, other := range s.bookings {
			if other.PaymentIntentID != nil && *other.PaymentIntentID == *b.PaymentIntentID {
				return store.ErrDuplicatePayment
			}
		}
	}

	for _, other := range s.bookings {
		if other.VenueID != b.VenueID || other.BookingDate != b.BookingDate || other.Status == store.StatusCancelled {
			continue
		}
		if other.BookingTime == b.BookingTime {
			return store.ErrConflict
		}
		oStart, err := availability.ParseClock(other.BookingTime)
		if err != nil {
			continue
		}
		if availability.Overlaps(start, dur, oStart, availability.HoursToMinutes(other.DurationHours)) {
			return store.ErrConflict
		}
	}

	if b.ID == uuid.Nil {
		b.ID = store.NewID()
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) UpdateBookingStatus(_ context.Context, id uuid.UUID, status store.BookingStatus) (*store.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = s.now()
	s.bookings[id] = b
	return &b, nil
}

// ---------------------------------------------------------------------------
// Users, games, notifications
// ---------------------------------------------------------------------------

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetGame(_ context.Context, id uuid.UUID) (*store.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &g, nil
}

func (s *Store) GetParticipant(_ context.Context, gameID, userID uuid.UUID) (*store.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantKey{gameID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CountParticipants(_ context.Context, gameID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.participants {
		if k.gameID == gameID {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertParticipant(_ context.Context, p *store.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := participantKey{p.GameID, p.UserID}
	if existing, ok := s.participants[k]; ok {
		*p = existing
		return false, nil
	}
	p.JoinedAt = s.now()
	s.participants[k] = *p
	return true, nil
}

func (s *Store) InsertNotification(_ context.Context, n *store.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = store.NewID()
	}
	n.CreatedAt = s.now()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID, limit int) ([]*store.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID {
			continue
		}
		out = append(out, &n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
