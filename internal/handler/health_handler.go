package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const readinessTimeout = 2 * time.Second

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func RegisterHealthRoutes(router fiber.Router, db *gorm.DB, redisClient *redis.Client) {
	h := &HealthHandler{db: db, redis: redisClient}

	router.Get("/livez", h.Live)
	router.Get("/readyz", h.Ready)
}

func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
	defer cancel()

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil {
			return readinessError(c, "postgres", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return readinessError(c, "postgres", err)
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			return readinessError(c, "redis", err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
}

func readinessError(c *fiber.Ctx, dependency string, err error) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"status":     "unavailable",
		"dependency": dependency,
		"error":      err.Error(),
	})
}
