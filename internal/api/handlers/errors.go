package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/validation"
	"github.com/culture-compass/backend/pkg/logger"
)

// respondError maps domain errors onto status codes. resource names the
// record for 404/409 bodies; action is the 500 message.
func respondError(c *fiber.Ctx, err error, resource, action string) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   verr.Error(),
			"details": verr.Fields,
		})
	case errors.Is(err, storage.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": resource + " not found"})
	case errors.Is(err, storage.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": resource + " already exists"})
	}

	logger.Error(action,
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": action})
}

// parseBody decodes and validates a JSON body.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return validation.Invalid("body", "Invalid request body")
	}
	return validation.Struct(out)
}
