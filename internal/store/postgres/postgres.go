// Package postgres implements store.Store on PostgreSQL. Queries are built
// with ent's dialect/sql builder and run through its driver over lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pitchside/pitchside_backend/internal/store"
)

const (
	tableVenues        = "venues"
	tableVenueHours    = "venue_hours"
	tableBlockedDates  = "venue_blocked_dates"
	tableVenuePolicies = "venue_policies"
	tableBookings      = "bookings"
	tableUsers         = "users"
	tableGames         = "games"
	tableParticipants  = "game_participants"
	tableNotifications = "notifications"
)

// Postgres SQLSTATE codes that mean another active booking holds the slot.
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"

	constraintPaymentIntent = "bookings_payment_intent_key"
)

// Dates and times are read back as text so that a 24:00 closing time
// survives the round trip.
const (
	bookingDateText = "to_char(booking_date, 'YYYY-MM-DD')"
	bookingTimeText = "to_char(booking_time, 'HH24:MI')"
)

var bookingColumns = []string{
	"id", "venue_id", "user_id", bookingDateText, bookingTimeText, "duration_hours",
	"total_price", "status", "payment_intent_id", "created_at", "updated_at",
}

type Store struct {
	drv *entsql.Driver
}

var _ store.Store = (*Store)(nil)

func New(drv *entsql.Driver) *Store {
	return &Store{drv: drv}
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.Postgres)
}

type querier interface {
	Query() (string, []any)
}

// query runs q and calls scan once per row.
func (s *Store) query(ctx context.Context, q querier, scan func(entsql.ColumnScanner) error) error {
	query, args := q.Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryOne is query for a single row; no rows yields store.ErrNotFound.
func (s *Store) queryOne(ctx context.Context, q querier, scan func(entsql.ColumnScanner) error) error {
	found := false
	err := s.query(ctx, q, func(r entsql.ColumnScanner) error {
		if found {
			return nil
		}
		found = true
		return scan(r)
	})
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) exec(ctx context.Context, q querier) (sql.Result, error) {
	query, args := q.Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Venues
// ---------------------------------------------------------------------------

func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (*store.Venue, error) {
	q := builder().
		Select("id", "owner_id", "name", "price_per_hour", "timezone", "is_active").
		From(entsql.Table(tableVenues)).
		Where(entsql.EQ("id", id))

	var v store.Venue
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&v.ID, &v.OwnerID, &v.Name, &v.PricePerHour, &v.Timezone, &v.IsActive)
	})
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return &v, nil
}

func (s *Store) GetVenueHours(ctx context.Context, venueID uuid.UUID, dayOfWeek int) (*store.VenueHours, error) {
	q := builder().
		Select("to_char(open_time, 'HH24:MI')", "to_char(close_time, 'HH24:MI')", "is_closed").
		From(entsql.Table(tableVenueHours)).
		Where(entsql.And(
			entsql.EQ("venue_id", venueID),
			entsql.EQ("day_of_week", dayOfWeek),
		))

	h := store.VenueHours{VenueID: venueID, DayOfWeek: dayOfWeek}
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&h.OpenTime, &h.CloseTime, &h.IsClosed)
	})
	if err != nil {
		return nil, fmt.Errorf("get venue hours: %w", err)
	}
	return &h, nil
}

func (s *Store) IsDateBlocked(ctx context.Context, venueID uuid.UUID, date string) (bool, error) {
	q := builder().
		Select("venue_id").
		From(entsql.Table(tableBlockedDates)).
		Where(entsql.And(
			entsql.EQ("venue_id", venueID),
			entsql.EQ("date", date),
		)).
		Limit(1)

	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		var id uuid.UUID
		return r.Scan(&id)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("check blocked date: %w", err)
	}
}

func (s *Store) GetVenuePolicy(ctx context.Context, venueID uuid.UUID) (*store.VenuePolicy, error) {
	q := builder().
		Select("min_duration_hours", "max_duration_hours", "time_slot_increment",
			"cancellation_hours", "buffer_minutes", "booking_window_days").
		From(entsql.Table(tableVenuePolicies)).
		Where(entsql.EQ("venue_id", venueID))

	p := store.VenuePolicy{VenueID: venueID}
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&p.MinDurationHours, &p.MaxDurationHours, &p.TimeSlotIncrement,
			&p.CancellationHours, &p.BufferMinutes, &p.BookingWindowDays)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get venue policy: %w", err)
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

func selectBookings() *entsql.Selector {
	return builder().Select(bookingColumns...).From(entsql.Table(tableBookings))
}

func scanBooking(r entsql.ColumnScanner) (*store.Booking, error) {
	var (
		b      store.Booking
		status string
		intent sql.NullString
	)
	if err := r.Scan(&b.ID, &b.VenueID, &b.UserID, &b.BookingDate, &b.BookingTime, &b.DurationHours,
		&b.TotalPrice, &status, &intent, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = store.BookingStatus(status)
	if intent.Valid {
		b.PaymentIntentID = &intent.String
	}
	return &b, nil
}

func (s *Store) listBookings(ctx context.Context, q *entsql.Selector) ([]*store.Booking, error) {
	var out []*store.Booking
	err := s.query(ctx, q, func(r entsql.ColumnScanner) error {
		b, err := scanBooking(r)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

func (s *Store) oneBooking(ctx context.Context, q *entsql.Selector) (*store.Booking, error) {
	var b *store.Booking
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		var err error
		b, err = scanBooking(r)
		return err
	})
	return b, err
}

func active() *entsql.Predicate {
	return entsql.NEQ("status", string(store.StatusCancelled))
}

func (s *Store) ListActiveBookings(ctx context.Context, venueID uuid.UUID, date string) ([]*store.Booking, error) {
	q := selectBookings().
		Where(entsql.And(
			entsql.EQ("venue_id", venueID),
			entsql.EQ("booking_date", date),
			active(),
		)).
		OrderBy("booking_time")

	out, err := s.listBookings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return out, nil
}

func findActiveBookingQuery(key store.BookingKey) *entsql.Selector {
	return selectBookings().
		Where(entsql.And(
			entsql.EQ("user_id", key.UserID),
			entsql.EQ("venue_id", key.VenueID),
			entsql.EQ("booking_date", key.Date),
			entsql.EQ("booking_time", key.Time),
			active(),
		)).
		Limit(1)
}

func (s *Store) FindActiveBooking(ctx context.Context, key store.BookingKey) (*store.Booking, error) {
	b, err := s.oneBooking(ctx, findActiveBookingQuery(key))
	if err != nil {
		return nil, fmt.Errorf("find active booking: %w", err)
	}
	return b, nil
}

func (s *Store) FindBookingByPaymentIntent(ctx context.Context, paymentIntentID string) (*store.Booking, error) {
	q := selectBookings().Where(entsql.EQ("payment_intent_id", paymentIntentID)).Limit(1)

	b, err := s.oneBooking(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find booking by payment intent: %w", err)
	}
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*store.Booking, error) {
	b, err := s.oneBooking(ctx, selectBookings().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (s *Store) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]*store.Booking, error) {
	q := selectBookings().
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("booking_date"), entsql.Desc("booking_time"))

	out, err := s.listBookings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return out, nil
}

// InsertBooking relies on the partial unique index and the exclusion
// constraint on bookings; either violation is reported as store.ErrConflict.
func (s *Store) InsertBooking(ctx context.Context, b *store.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = store.NewID()
	}
	err := s.queryOne(ctx, insertBookingQuery(b), func(r entsql.ColumnScanner) error {
		return r.Scan(&b.CreatedAt, &b.UpdatedAt)
	})
	if isDuplicatePayment(err) {
		return store.ErrDuplicatePayment
	}
	if isSlotViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// insertBookingQuery stores a nil payment intent as NULL so free bookings
// never collide on the payment intent key.
func insertBookingQuery(b *store.Booking) *entsql.InsertBuilder {
	var intent any
	if b.PaymentIntentID != nil {
		intent = *b.PaymentIntentID
	}
	return builder().
		Insert(tableBookings).
		Columns("id", "venue_id", "user_id", "booking_date", "booking_time",
			"duration_hours", "total_price", "status", "payment_intent_id").
		Values(b.ID, b.VenueID, b.UserID, b.BookingDate, b.BookingTime,
			b.DurationHours, b.TotalPrice, string(b.Status), intent).
		Returning("created_at", "updated_at")
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status store.BookingStatus) (*store.Booking, error) {
	q := builder().
		Update(tableBookings).
		Set("status", string(status)).
		Set("updated_at", time.Now()).
		Where(entsql.EQ("id", id))

	res, err := s.exec(ctx, q)
	if isSlotViolation(err) {
		return nil, store.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update booking status: %w", store.ErrNotFound)
	}
	return s.GetBooking(ctx, id)
}

func isSlotViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return pqErr.Constraint != constraintPaymentIntent
	case codeExclusionViolation:
		return true
	}
	return false
}

func isDuplicatePayment(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) &&
		string(pqErr.Code) == codeUniqueViolation &&
		pqErr.Constraint == constraintPaymentIntent
}

// ---------------------------------------------------------------------------
// Users, games, notifications
// ---------------------------------------------------------------------------

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	q := builder().
		Select("id", "email", "full_name", "phone").
		From(entsql.Table(tableUsers)).
		Where(entsql.EQ("id", id))

	var (
		u     store.User
		phone sql.NullString
	)
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&u.ID, &u.Email, &u.FullName, &phone)
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	return &u, nil
}

func (s *Store) GetGame(ctx context.Context, id uuid.UUID) (*store.Game, error) {
	q := builder().
		Select("id", "host_id", "venue_id", "title",
			"to_char(game_date, 'YYYY-MM-DD')", "to_char(game_time, 'HH24:MI')",
			"price_per_player", "max_players").
		From(entsql.Table(tableGames)).
		Where(entsql.EQ("id", id))

	var g store.Game
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&g.ID, &g.HostID, &g.VenueID, &g.Title, &g.GameDate, &g.GameTime,
			&g.PricePerPlayer, &g.MaxPlayers)
	})
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &g, nil
}

func (s *Store) GetParticipant(ctx context.Context, gameID, userID uuid.UUID) (*store.Participant, error) {
	q := builder().
		Select("game_id", "user_id", "joined_at").
		From(entsql.Table(tableParticipants)).
		Where(entsql.And(entsql.EQ("game_id", gameID), entsql.EQ("user_id", userID)))

	var p store.Participant
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&p.GameID, &p.UserID, &p.JoinedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

func (s *Store) CountParticipants(ctx context.Context, gameID uuid.UUID) (int, error) {
	q := builder().
		Select(entsql.Count("*")).
		From(entsql.Table(tableParticipants)).
		Where(entsql.EQ("game_id", gameID))

	var n int
	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

func insertParticipantQuery(p *store.Participant) *entsql.InsertBuilder {
	return builder().
		Insert(tableParticipants).
		Columns("game_id", "user_id").
		Values(p.GameID, p.UserID).
		OnConflict(entsql.ConflictColumns("game_id", "user_id"), entsql.DoNothing()).
		Returning("joined_at")
}

func (s *Store) InsertParticipant(ctx context.Context, p *store.Participant) (bool, error) {
	err := s.queryOne(ctx, insertParticipantQuery(p), func(r entsql.ColumnScanner) error {
		return r.Scan(&p.JoinedAt)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		// ON CONFLICT DO NOTHING returns no row for an existing participant.
		return false, nil
	default:
		return false, fmt.Errorf("insert participant: %w", err)
	}
}

func (s *Store) InsertNotification(ctx context.Context, n *store.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = store.NewID()
	}
	var data any
	if n.Data != nil {
		raw, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("encode notification data: %w", err)
		}
		data = string(raw)
	}
	var body any
	if n.Body != nil {
		body = *n.Body
	}

	q := builder().
		Insert(tableNotifications).
		Columns("id", "user_id", "type", "title", "body", "data").
		Values(n.ID, n.UserID, n.Type, n.Title, body, data).
		Returning("created_at")

	err := s.queryOne(ctx, q, func(r entsql.ColumnScanner) error {
		return r.Scan(&n.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*store.Notification, error) {
	q := builder().
		Select("id", "user_id", "type", "title", "body", "data", "is_read", "created_at").
		From(entsql.Table(tableNotifications)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		q.Limit(limit)
	}

	var out []*store.Notification
	err := s.query(ctx, q, func(r entsql.ColumnScanner) error {
		var (
			n    store.Notification
			body sql.NullString
			data []byte
		)
		if err := r.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &body, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return err
		}
		if body.Valid {
			n.Body = &body.String
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return err
			}
		}
		out = append(out, &n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}
