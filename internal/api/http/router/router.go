package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/pitchside/pitchside_backend/config"
	"github.com/pitchside/pitchside_backend/internal/api/http/handler"
	"github.com/pitchside/pitchside_backend/internal/api/http/middleware"
	"github.com/pitchside/pitchside_backend/internal/service/booking"
	"github.com/pitchside/pitchside_backend/internal/service/game"
	"github.com/pitchside/pitchside_backend/internal/service/notification"
	"github.com/pitchside/pitchside_backend/internal/service/scheduling"
	pasetotoken "github.com/pitchside/pitchside_backend/pkg/paseto"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg             *config.Config
	Redis           *redis.Client `optional:"true"`
	PasetoMgr       *pasetotoken.Manager
	SchedulingSvc   scheduling.Service
	BookingSvc      booking.Service
	GameSvc         game.Service
	NotificationSvc notification.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.AuthRequired(r.p.PasetoMgr, r.p.Redis)

	// 3. Initialize Handlers
	availabilityH := handler.NewAvailabilityHandler(r.p.SchedulingSvc)
	bookingH := handler.NewBookingHandler(r.p.BookingSvc)
	webhookH := handler.NewWebhookHandler(r.p.BookingSvc)
	gameH := handler.NewGameHandler(r.p.GameSvc)
	notificationH := handler.NewNotificationHandler(r.p.NotificationSvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerVenueRoutes(api, availabilityH)
	r.registerBookingRoutes(api, bookingH, authRequired)
	r.registerWebhookRoutes(api, webhookH)
	r.registerGameRoutes(api, gameH, authRequired)
	r.registerNotificationRoutes(api, notificationH, authRequired)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
