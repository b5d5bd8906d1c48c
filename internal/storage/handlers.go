package storage

import (
	"errors"
	"io"

	"backend-umaklink/internal/shared/imgproc"

	"github.com/gofiber/fiber/v2"
)

const maxUploadBytes = 10 << 20

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		if fh.Size > maxUploadBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		userID, _ := c.Locals("user_id").(string)
		obj, err := svc.UploadImage(c.Context(), userID, data)
		switch {
		case err == nil:
			return c.Status(fiber.StatusCreated).JSON(obj)
		case errors.Is(err, imgproc.ErrUnsupported):
			return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, ErrNotConfigured):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	})
}
