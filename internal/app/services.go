package app

import (
	"go.uber.org/fx"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/service/booking"
	"github.com/pitchside/pitchside_backend/internal/service/game"
	"github.com/pitchside/pitchside_backend/internal/service/notification"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/pkg/observability"
	pasetotoken "github.com/pitchside/pitchside_backend/pkg/paseto"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideSchedulingService,
		ProvideBookingService,
		ProvideGameService,
		ProvideNotificationService,
		ProvidePasetoManager,
	),
)

func ProvideSchedulingService(db store.Store, cfg *config.Config) scheduling.Service {
	return scheduling.New(db, cfg.Booking.Policy)
}

func ProvideBookingService(
	db store.Store,
	sched scheduling.Service,
	payments *stripe.Client,
	bus events.Bus,
	metrics *observability.BookingInstruments,
) booking.Service {
	return booking.New(db, sched, payments, bus, metrics)
}

func ProvideGameService(db store.Store, bus events.Bus) game.Service {
	return game.New(db, bus)
}

func ProvideNotificationService(db store.Store) notification.Service {
	return notification.New(db)
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}
