// Package correlations implements the REST API handlers the recommendation
// and dashboard collaborators use to read correlation records.
package correlations

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/threatiq/threatiq-backend/internal/store"
)

// GetCorrelations queries correlation records by tenant, minimum risk score,
// severity, or exploited flag.
func GetCorrelations(correlations store.CorrelationStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := store.CorrelationFilter{
			TenantID: c.Query("tenant"),
			MinRisk:  c.QueryInt("min_risk", 0),
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

		records, err := correlations.Query(c.Context(), filter)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"count":        len(records),
			"correlations": records,
		})
	}
}
