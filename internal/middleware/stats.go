package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the health endpoint's traffic counters.
const (
	KeyReqTotal  = "health:req_total"
	KeyReqErrors = "health:req_errors"
	KeyStartTime = "health:start_time"
)

// RequestStats counts requests and errors in Redis. Counter failures are
// ignored: stats must never take a request down.
func RequestStats(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		rdb.Incr(ctx, KeyReqTotal)
		if err != nil || c.Response().StatusCode() >= 500 {
			rdb.Incr(ctx, KeyReqErrors)
		}
		return err
	}
}
