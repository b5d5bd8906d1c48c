package location

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, adminOnly fiber.Handler) {
	r.Post("/", authMiddleware, adminOnly, func(c *fiber.Ctx) error {
		var req Location
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		loc, err := svc.Create(c.Context(), req)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		children, err := svc.Children(c.Context(), c.Query("parent_id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(children)
	})

	// Registered before /:id so "nearby" is not taken for an id.
	r.Get("/nearby", func(c *fiber.Ctx) error {
		lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
		lng, _ := strconv.ParseFloat(c.Query("lng"), 64)
		radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
		if radius == 0 {
			radius = 0.5
		}
		results, err := svc.Nearby(c.Context(), lat, lng, radius)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(results)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		loc, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(loc)
	})

	r.Get("/:id/children", func(c *fiber.Ctx) error {
		children, err := svc.Children(c.Context(), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(children)
	})

	r.Get("/:id/path", func(c *fiber.Ctx) error {
		names, err := svc.Path(c.Context(), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"levels": names})
	})
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidTree):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
