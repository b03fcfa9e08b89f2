// Package admin implements the REST API handlers for the administrative
// control surface: manually triggering an ingestion cycle and reporting
// scheduler status.
package admin

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/threatiq/threatiq-backend/internal/ingest"
)

// PostTriggerIngestion starts an ingestion cycle if the orchestrator is
// idle. A cycle already in flight yields 409; triggers are never queued.
func PostTriggerIngestion(orch *ingest.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := orch.Trigger(); err != nil {
			if errors.Is(err, ingest.ErrIngestionInProgress) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"success": false,
					"message": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Ingestion cycle started",
		})
	}
}

// GetIngestionStatus returns the orchestrator's scheduler and cycle state.
func GetIngestionStatus(orch *ingest.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(orch.Status())
	}
}
