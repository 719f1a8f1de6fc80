package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// HandleJobStatus reports the state of a background job.
func (svc *Service) HandleJobStatus(c *fiber.Ctx) error {
	if svc.Jobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "background jobs are not enabled")
	}
	id := c.Params("id")
	entry, ok, err := svc.Jobs.Lookup(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "job lookup failed")
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown job")
	}
	return c.JSON(fiber.Map{"success": true, "job": entry})
}
