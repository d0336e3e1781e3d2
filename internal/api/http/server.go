package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/api/http/middleware"
	"github.com/pitchside/pitchside_backend/internal/api/http/router"
	"github.com/pitchside/pitchside_backend/pkg/logs"
	"github.com/pitchside/pitchside_backend/pkg/observability"
)

// Module provides the HTTP server, and the router it mounts, to the fx graph.
var Module = fx.Module("http",
	router.Module,
	fx.Provide(NewServer),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client `optional:"true"`
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	app := NewApp(p.Cfg, p.Redis, p.Router, p.OTel != nil)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			go func() {
				if err := app.Listen(addr); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

// NewApp builds the fiber app with global middleware and all routes, without
// binding a listener.
func NewApp(cfg *config.Config, rdb *redis.Client, r *router.Router, tracing bool) *fiber.App {
	fc := fiber.Config{
		AppName:      cfg.Observability.ServiceName,
		ErrorHandler: errorHandler,
	}
	if cfg.Server.TimeoutSeconds > 0 {
		fc.ReadTimeout = time.Duration(cfg.Server.TimeoutSeconds) * time.Second
		fc.WriteTimeout = fc.ReadTimeout
	}
	app := fiber.New(fc)

	if tracing && cfg.Observability.Tracing.Enabled {
		app.Use(observability.FiberMiddleware(cfg.Observability.ServiceName))
	}

	configureGlobalMiddleware(app, cfg, rdb)

	r.Register(app)
	return app
}

func configureGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New())
		if cfg.Server.CORS.Enabled {
			app.Use(cors.New(cors.Config{
				AllowOrigins:     cfg.Server.CORS.AllowOrigins,
				AllowMethods:     cfg.Server.CORS.AllowMethods,
				AllowHeaders:     cfg.Server.CORS.AllowHeaders,
				ExposeHeaders:    cfg.Server.CORS.ExposeHeaders,
				AllowCredentials: cfg.Server.CORS.AllowCredentials,
				MaxAge:           cfg.Server.CORS.MaxAgeSeconds,
			}))
		}
		app.Use(middleware.NewLimiter(cfg.Server.RateLimit, rdb))
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} - [${time}] [req_id=${requestId}] ${method} ${url} ${status}\n",
	}))
}

// errorHandler renders errors that escape handlers (middleware rejections,
// unknown routes, panics) in the same {"error": ...} shape handlers use.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logs.FromContext(c.Context()).Error("unhandled request error",
			"method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
