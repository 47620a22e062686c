package handlers

import (
	"relist/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports process liveness plus cache reachability. The
// database is implicitly covered: the process refuses to start without it.
func HealthCheck(c *fiber.Ctx) error {
	cache := "ok"
	if repositories.CacheService != nil {
		if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
			cache = "unreachable"
		}
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"cache":  cache,
	})
}
