package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe reports that the process is serving requests.
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe pings the storage database when there is one.
func ReadinessProbe(db *sql.DB) fiber.Handler {
	return func(c fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unavailable",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
}

func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}
