package health

import (
	"context"

	healthsvc "agrimarket-backend/internal/health"
	"agrimarket-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers serves the health endpoints.
type Handlers struct {
	Rdb *redis.Client
	DB  healthsvc.DBPinger
}

// JSON returns the full health snapshot.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.Collect(context.Background(), h.Rdb, h.DB)
	return c.JSON(result)
}

// Reset clears the request counters.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if h.Rdb != nil {
		ctx := context.Background()
		h.Rdb.Del(ctx,
			middleware.KeyReqTotal,
			middleware.KeyReqErrors,
			middleware.KeyResTime,
			middleware.KeyResCount,
			middleware.KeyLastReq,
		)
	}
	return c.JSON(fiber.Map{"status": "ok", "message": "counters reset"})
}
