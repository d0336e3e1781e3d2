package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"github.com/pitchside/pitchside_backend/config"
)

// NewLimiter is a sliding-window limiter shared across instances through
// Redis. Without Redis the window is kept per process.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) fiber.Handler {
	limit := cfg.Max
	if limit <= 0 {
		limit = 20
	}
	exp := time.Duration(cfg.ExpirationSeconds) * time.Second
	if exp <= 0 {
		exp = 30 * time.Second
	}

	lc := limiter.Config{
		Max:               limit,
		Expiration:        exp,
		LimiterMiddleware: limiter.SlidingWindow{},
	}
	if rdb != nil {
		lc.Storage = fiberredis.NewFromConnection(rdb)
	}
	return limiter.New(lc)
}
