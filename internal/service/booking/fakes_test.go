package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/internal/store/memstore"
	"github.com/pitchside/pitchside_backend/pkg/observability"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

type fakeProvider struct {
	mu        sync.Mutex
	seq       int
	sessions  map[string]*stripe.Session
	refunds   []string
	refundErr error
	getErr    error
	createErr error
	webhook   *stripe.WebhookEvent
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: make(map[string]*stripe.Session)}
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req stripe.CheckoutRequest) (*stripe.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.seq++
	s := &stripe.Session{
		ID:              fmt.Sprintf("cs_%d", p.seq),
		URL:             fmt.Sprintf("https://checkout.test/cs_%d", p.seq),
		PaymentStatus:   "unpaid",
		PaymentIntentID: fmt.Sprintf("pi_%d", p.seq),
		AmountTotal:     req.Amount,
		CustomerEmail:   req.CustomerEmail,
		Metadata:        req.Metadata,
	}
	p.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) GetSession(_ context.Context, id string) (*stripe.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, p.getErr
	}
	s, ok := p.sessions[id]
	if !ok {
		return nil, stripe.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) Refund(_ context.Context, paymentIntentID string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds = append(p.refunds, paymentIntentID)
	return p.refundErr
}

func (p *fakeProvider) ParseWebhook(payload []byte, signature string) (*stripe.WebhookEvent, error) {
	if signature != "valid" {
		return nil, stripe.ErrBadSignature
	}
	var id string
	_ = json.Unmarshal(payload, &id)
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return &stripe.WebhookEvent{ID: "evt_other", Type: "payment_intent.created"}, nil
	}
	cp := *s
	return &stripe.WebhookEvent{ID: "evt_" + id, Type: stripe.EventCheckoutCompleted, Session: &cp}, nil
}

func (p *fakeProvider) Currency() string { return "usd" }

func (p *fakeProvider) pay(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[id].PaymentStatus = "paid"
}

func (p *fakeProvider) refunded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.refunds...)
}

// flakyStore fails the lookup by payment intent after the first call and
// reports every insert as a slot conflict, the way a lost race against a
// concurrent verification of the same session looks to the loser.
type flakyStore struct {
	store.Store
	mu      sync.Mutex
	lookups int
}

func (s *flakyStore) FindBookingByPaymentIntent(ctx context.Context, paymentIntentID string) (*store.Booking, error) {
	s.mu.Lock()
	s.lookups++
	n := s.lookups
	s.mu.Unlock()
	if n > 1 {
		return nil, errors.New("connection reset by peer")
	}
	return s.Store.FindBookingByPaymentIntent(ctx, paymentIntentID)
}

func (s *flakyStore) InsertBooking(context.Context, *store.Booking) error {
	return store.ErrConflict
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, v)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

// 2026-01-19 is a Monday; the clock is fixed the day before.
const monday = "2026-01-19"

var fixedNow = time.Date(2026, 1, 18, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db       *memstore.Store
	provider *fakeProvider
	pub      *recordingPublisher
	svc      *bookingService
	venueID  uuid.UUID
	freeID   uuid.UUID
	alice    uuid.UUID
	bob      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       memstore.New(),
		provider: newFakeProvider(),
		pub:      &recordingPublisher{},
		venueID:  uuid.New(),
		freeID:   uuid.New(),
		alice:    uuid.New(),
		bob:      uuid.New(),
	}

	f.db.PutVenue(store.Venue{ID: f.venueID, Name: "Court 1", PricePerHour: 2000, Timezone: "UTC", IsActive: true})
	f.db.PutVenue(store.Venue{ID: f.freeID, Name: "Park pitch", Timezone: "UTC", IsActive: true})
	for _, v := range []uuid.UUID{f.venueID, f.freeID} {
		f.db.PutHours(store.VenueHours{VenueID: v, DayOfWeek: 1, OpenTime: "09:00", CloseTime: "17:00"})
	}
	f.db.PutPolicy(store.VenuePolicy{
		VenueID: f.venueID, TimeSlotIncrement: 30, MinDurationHours: 1, MaxDurationHours: 3,
		CancellationHours: 24, BookingWindowDays: 30,
	})
	f.db.PutUser(store.User{ID: f.alice, Email: "alice@example.com", FullName: "Alice"})
	f.db.PutUser(store.User{ID: f.bob, Email: "bob@example.com", FullName: "Bob"})

	sched := scheduling.New(f.db, config.DefaultPolicy{TimeSlotIncrement: 60, MinDurationHours: 1})
	f.svc = New(f.db, sched, f.provider, f.pub, observability.NewBookingInstruments()).(*bookingService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

// paidSession runs a checkout for user and marks it paid.
func (f *fixture) paidSession(t *testing.T, user uuid.UUID, tm string) string {
	t.Helper()
	res, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID: user, VenueID: f.venueID, Date: monday, Time: tm, DurationHours: 1,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	f.provider.pay(res.SessionID)
	return res.SessionID
}
