package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	pasetotoken "github.com/pitchside/pitchside_backend/pkg/paseto"
	redispkg "github.com/pitchside/pitchside_backend/pkg/redis"
	"github.com/pitchside/pitchside_backend/pkg/reqctx"
)

// AuthRequired validates a Bearer PASETO access token and, when Redis is
// configured, checks that its session is still live.
// On success, stores *pasetotoken.Claims in c.Locals(pasetotoken.CtxKeyClaims)
// and the caller id on the request context.
func AuthRequired(mgr *pasetotoken.Manager, rdb *redis.Client) fiber.Handler {
	return func(c fiber.Ctx) error {
		h := c.Get("Authorization")
		if h == "" {
			return fiber.ErrUnauthorized
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.ErrUnauthorized
		}

		claims, err := mgr.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		// Only access tokens are accepted on protected routes
		if claims.Type != pasetotoken.TokenTypeAccess {
			return fiber.ErrUnauthorized
		}

		if rdb != nil && claims.SessionID != nil {
			active, err := redispkg.SessionActive(c.Context(), rdb, *claims.SessionID)
			if err != nil {
				return err
			}
			if !active {
				return fiber.ErrUnauthorized
			}
		}

		c.Locals(pasetotoken.CtxKeyClaims, claims)
		c.SetContext(reqctx.WithUserID(c.Context(), claims.UserID))
		return c.Next()
	}
}
