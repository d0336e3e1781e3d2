package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/events"
	"github.com/pitchside/pitchside_backend/internal/store"
	"github.com/pitchside/pitchside_backend/internal/store/memstore"
	"github.com/pitchside/pitchside_backend/internal/store/postgres"
	"github.com/pitchside/pitchside_backend/pkg/database"
	"github.com/pitchside/pitchside_backend/pkg/email"
	"github.com/pitchside/pitchside_backend/pkg/observability"
	redispkg "github.com/pitchside/pitchside_backend/pkg/redis"
	"github.com/pitchside/pitchside_backend/pkg/sms"
	"github.com/pitchside/pitchside_backend/pkg/stripe"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideSMSClient),
	fx.Provide(ProvideStripeClient),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideBookingInstruments),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideEventBus),
)

func ProvideStore(lc fx.Lifecycle, cfg *config.Config) (store.Store, error) {
	if cfg.Booking.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}

	drv, err := database.NewDriver(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Database.Migrations.AutoMigrate {
				return nil
			}
			slog.Info("applying database migrations")
			if err := database.Migrate(ctx, drv); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			return drv.Close()
		},
	})
	return postgres.New(drv), nil
}

// ProvideRedis returns nil when no address is configured; sessions are then
// not checked and rate limiting stays in memory.
func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		slog.Warn("redis is not configured, session revocation is not enforced")
		return nil, nil
	}
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

func ProvideStripeClient(cfg *config.Config) *stripe.Client {
	if !cfg.Stripe.Enabled {
		slog.Warn("stripe is disabled, only free venues can be booked")
	}
	return stripe.NewFromConfig(cfg.Stripe)
}

// ProvideNatsClient returns nil when no URL is configured.
func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL,
		nats.Name(cfg.Observability.ServiceName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "err", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

// ProvideEventBus publishes on NATS when connected and falls back to
// in-process delivery otherwise.
func ProvideEventBus(nc *nats.Conn) events.Bus {
	if nc == nil {
		slog.Warn("nats is not configured, events are delivered in process")
		return events.NewLocal()
	}
	return events.NewNATS(nc)
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Server.Environment,
		TracingEnabled: cfg.Observability.Tracing.Enabled,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.Tracing.OTLPInsecure,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

// ProvideBookingInstruments depends on the telemetry provider so the
// instruments are created after the global providers are installed.
func ProvideBookingInstruments(_ *observability.Provider) *observability.BookingInstruments {
	return observability.NewBookingInstruments()
}
