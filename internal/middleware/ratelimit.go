package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pdftranslate/client/pkg/response"
)

type RateLimiter struct {
	redis  *redis.Client
	logger zerolog.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{redis: redisClient, logger: logger}
}

// Limit creates a per-client-IP rate limiting middleware. A nil Redis client
// disables limiting.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())
		ctx := c.UserContext()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis down: let the request through
			rl.logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			return c.Next()
		}

		// Set expiration on first request
		if count == 1 {
			if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
				rl.logger.Warn().Err(err).Str("key", key).Msg("failed to set rate limit window")
			}
		}

		if count > int64(maxRequests) {
			ttl, err := rl.redis.TTL(ctx, key).Result()
			if err == nil && ttl < 0 {
				// A key without expiry would block the client forever
				if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
					rl.logger.Warn().Err(err).Str("key", key).Msg("failed to set rate limit window")
				}
				ttl = window
			}
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// UploadLimit returns a rate limiter for the upload endpoint
func (rl *RateLimiter) UploadLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("upload", maxPerHour, time.Hour)
}
