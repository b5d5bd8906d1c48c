package announcement

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, adminOnly fiber.Handler) {
	r.Post("/", authMiddleware, adminOnly, func(c *fiber.Ctx) error {
		var req Announcement
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.CreatedBy, _ = c.Locals("user_id").(string)
		a, err := svc.Create(c.Context(), req)
		if errors.Is(err, ErrValidation) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		items, err := svc.List(c.Context(), c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(items)
	})
}
