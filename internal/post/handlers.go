package post

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, staffOnly fiber.Handler) {
	r.Get("/posts", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit"))
		params := ListParams{
			Type:           c.Query("type"),
			ItemType:       c.Query("item_type"),
			PostIDs:        splitIDs(c.Query("post_ids")),
			PosterID:       c.Query("poster_id"),
			ExcludeIDs:     splitIDs(c.Query("exclude_ids")),
			Limit:          limit,
			OrderBy:        c.Query("order_by"),
			OrderDirection: c.Query("order_direction"),
		}
		posts, err := svc.List(c.Context(), params)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(fiber.Map{"posts": posts})
	})

	r.Get("/posts/:id", func(c *fiber.Ctx) error {
		p, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(p)
	})

	r.Post("/posts", authMiddleware, func(c *fiber.Ctx) error {
		var req Post
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if uid, ok := c.Locals("user_id").(string); ok {
			req.PosterID = uid
		}
		p, err := svc.Create(c.Context(), req)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Patch("/posts/:id/review", authMiddleware, staffOnly, func(c *fiber.Ctx) error {
		var req ReviewRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if uid, ok := c.Locals("user_id").(string); ok {
			req.StaffID = uid
		}
		p, err := svc.Review(c.Context(), c.Params("id"), req)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(p)
	})

	r.Post("/posts/:id/claim", authMiddleware, staffOnly, func(c *fiber.Ctx) error {
		var req ClaimRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if uid, ok := c.Locals("user_id").(string); ok {
			req.StaffID = uid
		}
		p, err := svc.Claim(c.Context(), c.Params("id"), req)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(p)
	})

	r.Post("/rpc/search_posts", func(c *fiber.Ctx) error {
		var req SearchParams
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rows, err := svc.Search(c.Context(), req)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(rows)
	})
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
