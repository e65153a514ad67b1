package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"SafeDeal/internal/services"
)

// respondError maps service error kinds onto HTTP statuses. Anything that is
// not a *services.Error is logged and reported as a 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindValidation:
		status = fiber.StatusBadRequest
	case services.KindNotFound:
		status = fiber.StatusNotFound
	case services.KindForbidden:
		status = fiber.StatusForbidden
	case services.KindConflict:
		status = fiber.StatusConflict
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	body := fiber.Map{"error": err.Error()}
	var serr *services.Error
	if errors.As(err, &serr) {
		body["error"] = serr.Message
		if len(serr.Fields) > 0 {
			body["fields"] = serr.Fields
		}
	}
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}

// currentUser returns the id set by middleware.Protected.
func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
