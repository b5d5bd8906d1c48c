package notify

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, d *Dispatcher, authMiddleware fiber.Handler) {
	r.Post("/email", authMiddleware, func(c *fiber.Ctx) error {
		var email Email
		if err := c.BodyParser(&email); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		email.SenderID, _ = c.Locals("user_id").(string)
		email.SenderRole, _ = c.Locals("role").(string)

		err := d.SendEmail(c.Context(), email)
		switch {
		case err == nil:
			return c.SendStatus(fiber.StatusAccepted)
		case errors.Is(err, ErrForbidden):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case errors.Is(err, ErrValidation):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
	})
}
