package search

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes exposes the composer for clients that cannot reach the
// vision classifier themselves.
func RegisterRoutes(r fiber.Router, composer *Composer) {
	r.Post("/advanced", func(c *fiber.Ctx) error {
		var p Params
		if err := c.BodyParser(&p); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		res := composer.HandleAdvancedSearch(c.UserContext(), p, nil)
		if !res.Success {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
		}
		return c.JSON(res)
	})
}
