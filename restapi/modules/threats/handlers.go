// Package threats implements the REST API handlers for reading threat items.
package threats

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/threatiq/threatiq-backend/internal/store"
)

// GetThreats lists threat items, optionally filtered by severity, exploited
// flag, and publish recency.
func GetThreats(threats store.ThreatStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := store.ThreatFilter{
			Severity: c.Query("severity"),
			Limit:    c.QueryInt("limit", 100),
		}

		if v := c.Query("exploited"); v != "" {
			exploited, err := strconv.ParseBool(v)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "exploited must be true or false",
				})
			}
			filter.Exploited = &exploited
		}

		if days := c.QueryInt("days", 0); days > 0 {
			filter.Since = time.Now().UTC().AddDate(0, 0, -days)
		}

		items, err := threats.List(c.Context(), filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"count":   len(items),
			"threats": items,
		})
	}
}

// GetThreat returns one threat item by disclosure id.
func GetThreat(threats store.ThreatStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := threats.Get(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if item == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "threat not found",
			})
		}
		return c.JSON(item)
	}
}
