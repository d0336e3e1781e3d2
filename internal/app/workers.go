package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.uber.org/fx"

	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/service/notification"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/email"
	"github.com/pitchside/pitchside_backend/pkg/logs"
	"github.com/pitchside/pitchside_backend/pkg/sms"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

// WorkerModule registers the event workers that carry out booking side
// effects.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc       fx.Lifecycle
	Bus      events.Bus
	DB       store.Store
	NotifSvc notification.Service
	Email    *email.Client
	SMS      *sms.Client
	Payments *stripe.Client
}

type workers struct {
	db       store.Store
	notifSvc notification.Service
	email    *email.Client
	sms      *sms.Client
	currency string
}

func RegisterWorkers(p WorkerParams) {
	w := &workers{
		db:       p.DB,
		notifSvc: p.NotifSvc,
		email:    p.Email,
		sms:      p.SMS,
		currency: p.Payments.Currency(),
	}
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.start(p.Bus)
		},
	})
}

func (w *workers) start(sub events.Subscriber) error {
	subs := []struct {
		subject string
		h       events.Handler
	}{
		{events.SubjectBookingConfirmed + ".*", w.notifyBookingConfirmed},
		{events.SubjectBookingConfirmed + ".*", w.emailBookingConfirmed},
		{events.SubjectBookingConfirmed + ".*", w.smsBookingConfirmed},
		{events.SubjectBookingCancelled + ".*", w.notifyBookingCancelled},
		{events.SubjectGameJoined, w.notifyGameJoined},
	}
	for _, s := range subs {
		if err := sub.Subscribe(s.subject, s.h); err != nil {
			return err
		}
	}
	slog.Info("workers: started", "subscriptions", len(subs))
	return nil
}

// ---------------------------------------------------------------------------
// notification_worker
// ---------------------------------------------------------------------------

func (w *workers) notifyBookingConfirmed(ctx context.Context, subject string, data []byte) {
	ev, err := events.Decode[events.BookingConfirmed](data)
	if err != nil {
		logs.FromContext(ctx).Warn("notification_worker: bad payload", "subject", subject, "err", err)
		return
	}

	body := fmt.Sprintf("%s at %s for %s hours", ev.Date, ev.Time, strconv.FormatFloat(ev.DurationHours, 'f', -1, 64))
	if v, err := w.db.GetVenue(ctx, ev.VenueID); err == nil {
		body = v.Name + ", " + body
	}

	_, err = w.notifSvc.Create(ctx, notification.CreateRequest{
		UserID: ev.UserID,
		Type:   notification.TypeBookingConfirmed,
		Title:  "Booking confirmed",
		Body:   &body,
		Data: map[string]any{
			"booking_id": ev.BookingID.String(),
			"venue_id":   ev.VenueID.String(),
			"date":       ev.Date,
			"time":       ev.Time,
		},
	})
	if err != nil {
		logs.FromContext(ctx).Warn("notification_worker: create notification failed",
			"booking_id", ev.BookingID, "err", err)
	}
}

func (w *workers) notifyBookingCancelled(ctx context.Context, subject string, data []byte) {
	ev, err := events.Decode[events.BookingCancelled](data)
	if err != nil {
		logs.FromContext(ctx).Warn("notification_worker: bad payload", "subject", subject, "err", err)
		return
	}

	body := "Your booking was cancelled."
	if ev.Refunded {
		body = "Your booking was cancelled and your payment refunded."
	}
	_, err = w.notifSvc.Create(ctx, notification.CreateRequest{
		UserID: ev.UserID,
		Type:   notification.TypeBookingCancelled,
		Title:  "Booking cancelled",
		Body:   &body,
		Data:   map[string]any{"booking_id": ev.BookingID.String(), "refunded": ev.Refunded},
	})
	if err != nil {
		logs.FromContext(ctx).Warn("notification_worker: create notification failed",
			"booking_id", ev.BookingID, "err", err)
	}
}

func (w *workers) notifyGameJoined(ctx context.Context, subject string, data []byte) {
	ev, err := events.Decode[events.GameJoined](data)
	if err != nil {
		logs.FromContext(ctx).Warn("notification_worker: bad payload", "subject", subject, "err", err)
		return
	}

	body := "A new player joined " + ev.GameTitle
	if u, err := w.db.GetUser(ctx, ev.PlayerID); err == nil && u.FullName != "" {
		body = u.FullName + " joined " + ev.GameTitle
	}
	_, err = w.notifSvc.Create(ctx, notification.CreateRequest{
		UserID: ev.HostID,
		Type:   notification.TypeGameJoined,
		Title:  "New player",
		Body:   &body,
		Data:   map[string]any{"game_id": ev.GameID.String(), "player_id": ev.PlayerID.String()},
	})
	if err != nil {
		logs.FromContext(ctx).Warn("notification_worker: create notification failed",
			"game_id", ev.GameID, "err", err)
	}
}

// ---------------------------------------------------------------------------
// email_worker
// ---------------------------------------------------------------------------

func (w *workers) emailBookingConfirmed(ctx context.Context, subject string, data []byte) {
	if !w.email.Enabled() {
		return
	}
	ev, err := events.Decode[events.BookingConfirmed](data)
	if err != nil {
		logs.FromContext(ctx).Warn("email_worker: bad payload", "subject", subject, "err", err)
		return
	}
	log := logs.FromContext(ctx).With("booking_id", ev.BookingID)

	user, err := w.db.GetUser(ctx, ev.UserID)
	if err != nil {
		log.Warn("email_worker: user not found", "user_id", ev.UserID, "err", err)
		return
	}
	venue, err := w.db.GetVenue(ctx, ev.VenueID)
	if err != nil {
		log.Warn("email_worker: venue not found", "venue_id", ev.VenueID, "err", err)
		return
	}

	currency := ev.Currency
	if currency == "" {
		currency = w.currency
	}
	msg, err := email.BuildBookingConfirmationEmail(email.BookingConfirmationData{
		To:            user.Email,
		FullName:      user.FullName,
		BookingID:     ev.BookingID.String(),
		VenueName:     venue.Name,
		Date:          ev.Date,
		Time:          ev.Time,
		DurationHours: ev.DurationHours,
		TotalPrice:    ev.TotalPrice,
		Currency:      currency,
		AppName:       w.email.AppName(),
	})
	if err != nil {
		log.Warn("email_worker: build confirmation failed", "err", err)
		return
	}
	if err := w.email.Send(ctx, msg); err != nil {
		log.Warn("email_worker: send confirmation failed", "err", err)
		return
	}
	log.Debug("email_worker: confirmation sent")
}

// ---------------------------------------------------------------------------
// sms_worker
// ---------------------------------------------------------------------------

func (w *workers) smsBookingConfirmed(ctx context.Context, subject string, data []byte) {
	if !w.sms.IsEnabled() {
		return
	}
	ev, err := events.Decode[events.BookingConfirmed](data)
	if err != nil {
		logs.FromContext(ctx).Warn("sms_worker: bad payload", "subject", subject, "err", err)
		return
	}
	log := logs.FromContext(ctx).With("booking_id", ev.BookingID)

	user, err := w.db.GetUser(ctx, ev.UserID)
	if err != nil || user.Phone == nil || *user.Phone == "" {
		log.Debug("sms_worker: no phone on file", "user_id", ev.UserID)
		return
	}
	venue, err := w.db.GetVenue(ctx, ev.VenueID)
	if err != nil {
		log.Warn("sms_worker: venue not found", "venue_id", ev.VenueID, "err", err)
		return
	}

	if err := w.sms.SendBookingConfirmation(ctx, sms.BookingConfirmation{
		Phone:     *user.Phone,
		VenueName: venue.Name,
		Date:      ev.Date,
		Time:      ev.Time,
	}); err != nil {
		log.Warn("sms_worker: send confirmation failed", "err", err)
	}
}
