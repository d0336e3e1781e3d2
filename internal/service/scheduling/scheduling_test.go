package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/availability"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/internal/store/memstore"
)

// 2026-01-19 is a Monday.
const monday = "2026-01-19"

func seed(t *testing.T) (*memstore.Store, uuid.UUID) {
	t.Helper()
	db := memstore.New()
	venueID := uuid.New()
	db.PutVenue(store.Venue{ID: venueID, Name: "Court 1", PricePerHour: 2000, Timezone: "Europe/London", IsActive: true})
	db.PutHours(store.VenueHours{VenueID: venueID, DayOfWeek: 1, OpenTime: "09:00", CloseTime: "17:00"})
	db.PutHours(store.VenueHours{VenueID: venueID, DayOfWeek: 0, OpenTime: "09:00", CloseTime: "17:00", IsClosed: true})
	return db, venueID
}

func defaults() config.DefaultPolicy {
	return config.DefaultPolicy{TimeSlotIncrement: 60, MinDurationHours: 1}
}

func TestAvailability_Example(t *testing.T) {
	ctx := context.Background()
	db, venueID := seed(t)
	if err := db.InsertBooking(ctx, &store.Booking{
		VenueID: venueID, UserID: uuid.New(), BookingDate: monday, BookingTime: "11:00",
		DurationHours: 2, Status: store.StatusConfirmed,
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	cancelled := &store.Booking{
		VenueID: venueID, UserID: uuid.New(), BookingDate: monday, BookingTime: "14:00",
		DurationHours: 1, Status: store.StatusConfirmed,
	}
	_ = db.InsertBooking(ctx, cancelled)
	_, _ = db.UpdateBookingStatus(ctx, cancelled.ID, store.StatusCancelled)

	slots, err := New(db, defaults()).Availability(ctx, venueID, monday)
	if err != nil {
		t.Fatalf("Availability() error = %v", err)
	}

	want := []availability.Slot{
		{Time: "09:00", Available: true}, {Time: "10:00", Available: true}, {Time: "11:00", Available: false}, {Time: "12:00", Available: false},
		{Time: "13:00", Available: true}, {Time: "14:00", Available: true}, {Time: "15:00", Available: true}, {Time: "16:00", Available: true},
	}
	if len(slots) != len(want) {
		t.Fatalf("Availability() = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slot %d = %+v, want %+v", i, slots[i], want[i])
		}
	}
}

func TestAvailability_Empty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		date string
		prep func(db *memstore.Store, venueID uuid.UUID)
	}{
		{"closed weekday", "2026-01-18", nil},
		{"no hours row", "2026-01-20", nil},
		{"blocked date", monday, func(db *memstore.Store, venueID uuid.UUID) {
			db.BlockDate(store.BlockedDate{VenueID: venueID, Date: monday})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, venueID := seed(t)
			if tt.prep != nil {
				tt.prep(db, venueID)
			}
			slots, err := New(db, defaults()).Availability(ctx, venueID, tt.date)
			if err != nil {
				t.Fatalf("Availability() error = %v", err)
			}
			if slots == nil || len(slots) != 0 {
				t.Errorf("Availability() = %v, want empty list", slots)
			}
		})
	}
}

func TestAvailability_Errors(t *testing.T) {
	ctx := context.Background()
	db, venueID := seed(t)
	inactive := uuid.New()
	db.PutVenue(store.Venue{ID: inactive, IsActive: false})

	tests := []struct {
		name    string
		venueID uuid.UUID
		date    string
		wantErr error
	}{
		{"bad date", venueID, "19/01/2026", ErrInvalidDate},
		{"unknown venue", uuid.New(), monday, ErrVenueNotFound},
		{"inactive venue", inactive, monday, ErrVenueNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(db, defaults()).Availability(ctx, tt.venueID, tt.date)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Availability() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_PolicyAndLocation(t *testing.T) {
	ctx := context.Background()
	db, venueID := seed(t)
	day, _ := availability.ParseDate(monday)
	svc := New(db, config.DefaultPolicy{TimeSlotIncrement: 30, MinDurationHours: 1.5})

	sched, err := svc.Load(ctx, venueID, day)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sched.Input.Policy.Increment() != 30 || sched.Input.Policy.MinDuration() != 1.5 {
		t.Errorf("default policy = %+v, want configured defaults", sched.Input.Policy)
	}
	if sched.Location.String() != "Europe/London" {
		t.Errorf("Location = %s, want Europe/London", sched.Location)
	}

	db.PutPolicy(store.VenuePolicy{VenueID: venueID, TimeSlotIncrement: 15, MinDurationHours: 2, CancellationHours: 24})
	sched, err = svc.Load(ctx, venueID, day)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sched.Input.Policy.Increment() != 15 || sched.Input.Policy.CancellationHours != 24 {
		t.Errorf("venue policy = %+v, want stored policy", sched.Input.Policy)
	}

	now := time.Date(2026, 1, 19, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	if got := sched.Today(now).Day(); got != 20 {
		t.Errorf("Today() day = %d, want 20 in London", got)
	}
}
