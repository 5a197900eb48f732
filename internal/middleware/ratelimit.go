package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = time.Minute

// RateLimitMiddleware enforces a fixed per-minute request budget keyed by
// path and client IP. Redis failures fail open so the escrow API stays up
// when the limiter backend does not.
func RateLimitMiddleware(rdb *redis.Client, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("rl:%s:%s", c.Path(), c.IP())

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, rateLimitWindow)
		}

		if count > int64(perMinute) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"code":  "rate_limited",
			})
		}

		return c.Next()
	}
}
