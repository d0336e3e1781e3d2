package booking

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/observability"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

func TestCheckout_CreatesSession(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID: f.alice, VenueID: f.venueID, Date: monday, Time: "9:30", DurationHours: 1.5,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if res.SessionID == "" || res.URL == "" || res.Booking != nil {
		t.Fatalf("Checkout() = %+v, want a session and no booking", res)
	}

	sess, _ := f.provider.GetSession(context.Background(), res.SessionID)
	if sess.AmountTotal != 3000 {
		t.Errorf("amount = %d, want 3000 (2000/h * 1.5h)", sess.AmountTotal)
	}
	want := map[string]string{
		metaUserID: f.alice.String(), metaVenueID: f.venueID.String(), metaDate: monday,
		metaTime: "09:30", metaDurationHours: "1.5", metaPrice: "3000", metaEmail: "alice@example.com",
	}
	for k, v := range want {
		if sess.Metadata[k] != v {
			t.Errorf("metadata[%s] = %q, want %q", k, sess.Metadata[k], v)
		}
	}
	if len(f.db.Bookings()) != 0 {
		t.Error("checkout must not insert a booking before payment")
	}
}

func TestCheckout_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.InsertBooking(ctx, &store.Booking{
		VenueID: f.venueID, UserID: f.bob, BookingDate: monday, BookingTime: "14:00",
		DurationHours: 2, Status: store.StatusConfirmed,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	base := CheckoutRequest{UserID: f.alice, VenueID: f.venueID, Date: monday, Time: "10:00", DurationHours: 1}
	with := func(mod func(r *CheckoutRequest)) CheckoutRequest {
		r := base
		mod(&r)
		return r
	}

	tests := []struct {
		name    string
		req     CheckoutRequest
		wantErr error
	}{
		{"anonymous", with(func(r *CheckoutRequest) { r.UserID = uuid.Nil }), ErrUnauthenticated},
		{"unknown user", with(func(r *CheckoutRequest) { r.UserID = uuid.New() }), ErrUnauthenticated},
		{"missing venue", with(func(r *CheckoutRequest) { r.VenueID = uuid.Nil }), ErrValidation},
		{"bad date", with(func(r *CheckoutRequest) { r.Date = "Jan 19" }), ErrValidation},
		{"bad time", with(func(r *CheckoutRequest) { r.Time = "ten" }), ErrValidation},
		{"zero duration", with(func(r *CheckoutRequest) { r.DurationHours = 0 }), ErrValidation},
		{"off grid", with(func(r *CheckoutRequest) { r.Time = "10:15" }), ErrValidation},
		{"too long", with(func(r *CheckoutRequest) { r.DurationHours = 4 }), ErrValidation},
		{"past date", with(func(r *CheckoutRequest) { r.Date = "2026-01-12" }), ErrValidation},
		{"overlaps by duration", with(func(r *CheckoutRequest) { r.Time = "13:30"; r.DurationHours = 1 }), ErrSlotConflict},
		{"unknown venue", with(func(r *CheckoutRequest) { r.VenueID = uuid.New() }), scheduling.ErrVenueNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Checkout(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Checkout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckout_ProviderDown(t *testing.T) {
	f := newFixture(t)
	f.provider.createErr = stripe.ErrUnavailable

	_, err := f.svc.Checkout(context.Background(), CheckoutRequest{
		UserID: f.alice, VenueID: f.venueID, Date: monday, Time: "10:00", DurationHours: 1,
	})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Checkout() error = %v, want ErrUpstream", err)
	}
}

func TestCheckout_FreeVenueBooksImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CheckoutRequest{UserID: f.alice, VenueID: f.freeID, Date: monday, Time: "10:00", DurationHours: 1}

	res, err := f.svc.Checkout(ctx, req)
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if res.Status != OutcomeBooked || res.Booking == nil || res.SessionID != "" {
		t.Fatalf("Checkout() = %+v, want an immediate booking", res)
	}
	if res.Booking.TotalPrice != 0 || res.Booking.PaymentIntentID != nil {
		t.Errorf("free booking = %+v, want no price and no payment", res.Booking)
	}

	again, err := f.svc.Checkout(ctx, req)
	if err != nil || again.Status != OutcomeAlreadyBooked || again.Booking.ID != res.Booking.ID {
		t.Errorf("second Checkout() = %+v, %v; want the same booking", again, err)
	}

	_, err = f.svc.Checkout(ctx, CheckoutRequest{UserID: f.bob, VenueID: f.freeID, Date: monday, Time: "10:00", DurationHours: 1})
	if !errors.Is(err, ErrSlotConflict) {
		t.Errorf("Checkout() for a taken free slot error = %v, want ErrSlotConflict", err)
	}

	if n := len(f.db.Bookings()); n != 1 {
		t.Errorf("%d bookings, want 1", n)
	}
	if f.pub.count() != 1 {
		t.Errorf("%d events published, want 1", f.pub.count())
	}
}

func TestVerify_BooksOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.paidSession(t, f.alice, "11:00")

	first, err := f.svc.Verify(ctx, f.alice, sid)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if first.Status != OutcomeBooked || first.Booking.Status != store.StatusConfirmed {
		t.Fatalf("Verify() = %+v, want a confirmed booking", first)
	}
	if first.Booking.TotalPrice != 2000 || *first.Booking.PaymentIntentID == "" {
		t.Errorf("booking = %+v, want the paid amount and intent", first.Booking)
	}

	second, err := f.svc.Verify(ctx, f.alice, sid)
	if err != nil {
		t.Fatalf("second Verify() error = %v", err)
	}
	if second.Status != OutcomeAlreadyBooked || second.Booking.ID != first.Booking.ID {
		t.Errorf("second Verify() = %+v, want the same booking", second)
	}

	if n := len(f.db.Bookings()); n != 1 {
		t.Errorf("%d bookings, want 1", n)
	}
	if len(f.provider.refunded()) != 0 {
		t.Errorf("refunds = %v, want none", f.provider.refunded())
	}
	if f.pub.count() != 1 {
		t.Errorf("%d events published, want 1", f.pub.count())
	}
	if got := f.pub.subjects[0]; got != events.BookingConfirmedSubject(first.Booking.ID) {
		t.Errorf("subject = %q", got)
	}
	want := events.BookingConfirmed{
		BookingID: first.Booking.ID, UserID: f.alice, VenueID: f.venueID,
		Date: monday, Time: "11:00", DurationHours: 1, TotalPrice: 2000, Currency: "usd",
	}
	if got, ok := f.pub.payloads[0].(events.BookingConfirmed); !ok || got != want {
		t.Errorf("payload = %+v, want %+v", f.pub.payloads[0], want)
	}
}

func TestVerify_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func(f *fixture) error
		wantErr error
	}{
		{
			name: "empty session id",
			run: func(f *fixture) error {
				_, err := f.svc.Verify(ctx, f.alice, "  ")
				return err
			},
			wantErr: ErrInvalidSession,
		},
		{
			name: "unknown session",
			run: func(f *fixture) error {
				_, err := f.svc.Verify(ctx, f.alice, "cs_missing")
				return err
			},
			wantErr: ErrInvalidSession,
		},
		{
			name: "anonymous caller",
			run: func(f *fixture) error {
				_, err := f.svc.Verify(ctx, uuid.Nil, "cs_1")
				return err
			},
			wantErr: ErrUnauthenticated,
		},
		{
			name: "unpaid",
			run: func(f *fixture) error {
				res, _ := f.svc.Checkout(ctx, CheckoutRequest{UserID: f.alice, VenueID: f.venueID, Date: monday, Time: "10:00", DurationHours: 1})
				_, err := f.svc.Verify(ctx, f.alice, res.SessionID)
				return err
			},
			wantErr: ErrPaymentIncomplete,
		},
		{
			name: "payer mismatch",
			run: func(f *fixture) error {
				sid := f.paidSession(t, f.alice, "10:00")
				_, err := f.svc.Verify(ctx, f.bob, sid)
				return err
			},
			wantErr: ErrPayerMismatch,
		},
		{
			name: "provider unavailable",
			run: func(f *fixture) error {
				sid := f.paidSession(t, f.alice, "10:00")
				f.provider.getErr = stripe.ErrUnavailable
				_, err := f.svc.Verify(ctx, f.alice, sid)
				return err
			},
			wantErr: ErrUpstream,
		},
		{
			name: "session without booking metadata",
			run: func(f *fixture) error {
				f.provider.sessions["cs_foreign"] = &stripe.Session{ID: "cs_foreign", PaymentStatus: "paid", PaymentIntentID: "pi_x"}
				_, err := f.svc.Verify(ctx, f.alice, "cs_foreign")
				return err
			},
			wantErr: ErrInvalidSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := tt.run(f); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if n := len(f.db.Bookings()); n != 0 {
				t.Errorf("%d bookings, want 0", n)
			}
		})
	}
}

func TestVerify_RaceSingleWinnerRefundsLoser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Both customers paid for 12:00 before either was verified.
	aliceSID := f.paidSession(t, f.alice, "12:00")
	bobSID := f.paidSession(t, f.bob, "12:00")

	type outcome struct {
		res *Result
		err error
	}
	results := make([]outcome, 2)
	var wg sync.WaitGroup
	for i, call := range []struct {
		user uuid.UUID
		sid  string
	}{{f.alice, aliceSID}, {f.bob, bobSID}} {
		wg.Add(1)
		go func(i int, user uuid.UUID, sid string) {
			defer wg.Done()
			res, err := f.svc.Verify(ctx, user, sid)
			results[i] = outcome{res, err}
		}(i, call.user, call.sid)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	var loserIntent string
	for _, r := range results {
		var ce *ConflictError
		switch {
		case r.err == nil && r.res.Status == OutcomeBooked:
			wins++
		case errors.As(r.err, &ce):
			conflicts++
			loserIntent = ce.PaymentIntentID
			if !ce.Refunded {
				t.Error("conflict should report a successful refund")
			}
			if !errors.Is(r.err, ErrSlotConflict) {
				t.Error("ConflictError must match ErrSlotConflict")
			}
		default:
			t.Errorf("unexpected outcome %+v", r)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d; want 1 and 1", wins, conflicts)
	}
	if got := f.provider.refunded(); len(got) != 1 || got[0] != loserIntent {
		t.Errorf("refunds = %v, want only %s", got, loserIntent)
	}
	if n := len(f.db.Bookings()); n != 1 {
		t.Errorf("%d bookings, want 1", n)
	}
}

func TestVerify_OverlapByDurationIsAConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Bob pays for 12:30 while Alice holds 12:00-13:00 unverified.
	aliceSID := f.paidSession(t, f.alice, "12:00")
	bobSID := f.paidSession(t, f.bob, "12:30")

	if _, err := f.svc.Verify(ctx, f.alice, aliceSID); err != nil {
		t.Fatalf("Verify(alice) error = %v", err)
	}
	_, err := f.svc.Verify(ctx, f.bob, bobSID)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("Verify(bob) error = %v, want ErrSlotConflict", err)
	}
	if got := f.provider.refunded(); len(got) != 1 {
		t.Errorf("refunds = %v, want one", got)
	}
}

func TestVerify_RefundFailureStillReportsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	aliceSID := f.paidSession(t, f.alice, "15:00")
	bobSID := f.paidSession(t, f.bob, "15:00")
	f.provider.refundErr = stripe.ErrUnavailable

	if _, err := f.svc.Verify(ctx, f.alice, aliceSID); err != nil {
		t.Fatalf("Verify(alice) error = %v", err)
	}

	_, err := f.svc.Verify(ctx, f.bob, bobSID)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("Verify(bob) error = %v, want ConflictError", err)
	}
	if ce.Refunded {
		t.Error("Refunded = true after a failed refund")
	}
}

func TestVerify_UnreadablePaymentAfterConflictIsNotRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sid := f.paidSession(t, f.alice, "13:00")

	db := &flakyStore{Store: f.db}
	sched := scheduling.New(db, config.DefaultPolicy{TimeSlotIncrement: 60, MinDurationHours: 1})
	svc := New(db, sched, f.provider, f.pub, observability.NewBookingInstruments())

	_, err := svc.Verify(ctx, f.alice, sid)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("Verify() error = %v, want ErrUpstream", err)
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		t.Errorf("Verify() error = %v, want no ConflictError", err)
	}
	if got := f.provider.refunded(); len(got) != 0 {
		t.Errorf("refunds = %v, want none while the payment may hold a booking", got)
	}
}

func TestVerify_DuplicatePaymentForHeldSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.paidSession(t, f.alice, "09:00")
	// A second tab: the checkout was opened before the first one was verified.
	second := f.paidSession(t, f.alice, "09:00")

	booked, err := f.svc.Verify(ctx, f.alice, first)
	if err != nil {
		t.Fatalf("Verify(first) error = %v", err)
	}
	res, err := f.svc.Verify(ctx, f.alice, second)
	if err != nil {
		t.Fatalf("Verify(second) error = %v", err)
	}
	if res.Status != OutcomeAlreadyBooked || res.Booking.ID != booked.Booking.ID {
		t.Errorf("Verify(second) = %+v, want the existing booking", res)
	}
	secondSess, _ := f.provider.GetSession(ctx, second)
	if got := f.provider.refunded(); len(got) != 1 || got[0] != secondSess.PaymentIntentID {
		t.Errorf("refunds = %v, want the duplicate payment %s", got, secondSess.PaymentIntentID)
	}
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("completed session books", func(t *testing.T) {
		f := newFixture(t)
		sid := f.paidSession(t, f.alice, "10:00")

		if err := f.svc.HandleWebhook(ctx, []byte(strconv.Quote(sid)), "valid"); err != nil {
			t.Fatalf("HandleWebhook() error = %v", err)
		}
		// The client arriving later sees the same booking.
		res, err := f.svc.Verify(ctx, f.alice, sid)
		if err != nil || res.Status != OutcomeAlreadyBooked {
			t.Errorf("Verify() after webhook = %+v, %v", res, err)
		}
		if n := len(f.db.Bookings()); n != 1 {
			t.Errorf("%d bookings, want 1", n)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.HandleWebhook(ctx, []byte(`"cs_1"`), "forged"); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("HandleWebhook() error = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("other events acknowledged", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.HandleWebhook(ctx, []byte(`"unknown"`), "valid"); err != nil {
			t.Errorf("HandleWebhook() error = %v, want nil", err)
		}
	})

	t.Run("failed conflict refund is redelivered", func(t *testing.T) {
		f := newFixture(t)
		a := f.paidSession(t, f.alice, "11:00")
		b := f.paidSession(t, f.bob, "11:00")
		if err := f.svc.HandleWebhook(ctx, []byte(strconv.Quote(a)), "valid"); err != nil {
			t.Fatalf("HandleWebhook(alice) error = %v", err)
		}

		f.provider.refundErr = stripe.ErrUnavailable
		if err := f.svc.HandleWebhook(ctx, []byte(strconv.Quote(b)), "valid"); !errors.Is(err, ErrUpstream) {
			t.Fatalf("HandleWebhook(bob) error = %v, want ErrUpstream", err)
		}

		f.provider.refundErr = nil
		if err := f.svc.HandleWebhook(ctx, []byte(strconv.Quote(b)), "valid"); err != nil {
			t.Fatalf("HandleWebhook(bob) redelivery error = %v", err)
		}
		bobSess, _ := f.provider.GetSession(ctx, b)
		got := f.provider.refunded()
		if len(got) != 2 || got[0] != bobSess.PaymentIntentID || got[1] != bobSess.PaymentIntentID {
			t.Errorf("refunds = %v, want two attempts for %s", got, bobSess.PaymentIntentID)
		}
		if n := len(f.db.Bookings()); n != 1 {
			t.Errorf("%d bookings, want 1", n)
		}
	})

	t.Run("conflict acknowledged", func(t *testing.T) {
		f := newFixture(t)
		a := f.paidSession(t, f.alice, "10:00")
		b := f.paidSession(t, f.bob, "10:00")
		_ = f.svc.HandleWebhook(ctx, []byte(strconv.Quote(a)), "valid")
		if err := f.svc.HandleWebhook(ctx, []byte(strconv.Quote(b)), "valid"); err != nil {
			t.Errorf("HandleWebhook() error = %v, want nil after compensation", err)
		}
		if len(f.provider.refunded()) != 1 {
			t.Errorf("refunds = %v, want one", f.provider.refunded())
		}
	})
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("nats: connection closed")
	sid := f.paidSession(t, f.alice, "10:00")

	res, err := f.svc.Verify(context.Background(), f.alice, sid)
	if err != nil || res.Status != OutcomeBooked {
		t.Errorf("Verify() = %+v, %v; want booked despite publish failure", res, err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		now         time.Time
		caller      func(f *fixture) uuid.UUID
		wantErr     error
		wantRefunds int
	}{
		{
			name:        "refunds when outside the cancellation window",
			now:         fixedNow,
			caller:      func(f *fixture) uuid.UUID { return f.alice },
			wantRefunds: 1,
		},
		{
			name:    "too close to start",
			now:     time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
			caller:  func(f *fixture) uuid.UUID { return f.alice },
			wantErr: ErrTooLateToCancel,
		},
		{
			name:    "someone else's booking",
			now:     fixedNow,
			caller:  func(f *fixture) uuid.UUID { return f.bob },
			wantErr: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sid := f.paidSession(t, f.alice, "11:00")
			res, err := f.svc.Verify(ctx, f.alice, sid)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			f.svc.now = func() time.Time { return tt.now }

			got, err := f.svc.Cancel(ctx, tt.caller(f), res.Booking.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Cancel() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got.Status != store.StatusCancelled {
				t.Errorf("status = %s, want cancelled", got.Status)
			}
			if n := len(f.provider.refunded()); n != tt.wantRefunds {
				t.Errorf("%d refunds, want %d", n, tt.wantRefunds)
			}
		})
	}
}

func TestCancel_ReleasesSlotAndIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Verify(ctx, f.alice, f.paidSession(t, f.alice, "11:00"))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if _, err := f.svc.Cancel(ctx, f.alice, res.Booking.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := f.svc.Cancel(ctx, f.alice, res.Booking.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("second Cancel() error = %v, want ErrAlreadyCancelled", err)
	}
	if _, err := f.svc.Cancel(ctx, f.alice, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel(unknown) error = %v, want ErrNotFound", err)
	}

	// The slot is bookable again and the cancelled row is kept.
	if _, err := f.svc.Verify(ctx, f.bob, f.paidSession(t, f.bob, "11:00")); err != nil {
		t.Errorf("Verify() on released slot error = %v", err)
	}
	if n := len(f.db.Bookings()); n != 2 {
		t.Errorf("%d booking rows, want 2", n)
	}
}

func TestCancel_RefundFailureKeepsBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, _ := f.svc.Verify(ctx, f.alice, f.paidSession(t, f.alice, "11:00"))
	f.provider.refundErr = stripe.ErrUnavailable

	if _, err := f.svc.Cancel(ctx, f.alice, res.Booking.ID); !errors.Is(err, ErrUpstream) {
		t.Fatalf("Cancel() error = %v, want ErrUpstream", err)
	}
	b, _ := f.db.GetBooking(ctx, res.Booking.ID)
	if b.Status != store.StatusConfirmed {
		t.Errorf("status = %s, want confirmed after failed refund", b.Status)
	}
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, tm := range []string{"09:00", "13:00"} {
		if _, err := f.svc.Verify(ctx, f.alice, f.paidSession(t, f.alice, tm)); err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
	}

	mine, err := f.svc.ListForUser(ctx, f.alice)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListForUser(alice) = %d, %v; want 2", len(mine), err)
	}
	theirs, err := f.svc.ListForUser(ctx, f.bob)
	if err != nil || theirs == nil || len(theirs) != 0 {
		t.Errorf("ListForUser(bob) = %v, %v; want empty", theirs, err)
	}
}
