package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/private", JWTMiddleware("secret"), func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			return fiber.NewError(fiber.StatusUnauthorized)
		}
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/staff", JWTMiddleware("secret"), RequireRole(RoleStaff, RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp.StatusCode
}

func TestJWTMiddleware(t *testing.T) {
	app := newApp()

	if code := get(t, app, "/private", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", code)
	}
	if code := get(t, app, "/private", "garbage"); code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for bad token, got %d", code)
	}

	token, err := SignToken("secret", "user-1", "", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if code := get(t, app, "/private", token); code != http.StatusOK {
		t.Fatalf("expected ok, got %d", code)
	}

	other, _ := SignToken("other-secret", "user-1", RoleAdmin, time.Minute)
	if code := get(t, app, "/private", other); code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for foreign signature")
	}

	expired, _ := SignToken("secret", "user-1", RoleUser, -time.Minute)
	if code := get(t, app, "/private", expired); code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized for expired token")
	}
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	user, _ := SignToken("secret", "user-1", RoleUser, time.Minute)
	if code := get(t, app, "/staff", user); code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", code)
	}

	staff, _ := SignToken("secret", "staff-1", RoleStaff, time.Minute)
	if code := get(t, app, "/staff", staff); code != http.StatusOK {
		t.Fatalf("expected ok, got %d", code)
	}
}

func TestBearerFromHeader(t *testing.T) {
	if bearerFromHeader("Bearer abc") != "abc" {
		t.Fatalf("expected token")
	}
	if bearerFromHeader("bearer abc") != "abc" {
		t.Fatalf("expected case-insensitive scheme")
	}
	if bearerFromHeader("Basic abc") != "" || bearerFromHeader("abc") != "" {
		t.Fatalf("expected empty token")
	}
}
