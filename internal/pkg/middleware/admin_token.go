package middleware

import (
	"crypto/hmac"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/andersonlima/payhook/internal/pkg/env"
)

// AdminTokenMiddleware guards the repair API with a shared token. When no
// token is configured the whole surface is disabled rather than left open.
func AdminTokenMiddleware(c *fiber.Ctx) error {
	expected := env.GetEnv("ADMIN_API_TOKEN", "")
	if expected == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_api_disabled"})
	}

	got := strings.TrimSpace(c.Get("X-Admin-Token"))
	if got == "" || !hmac.Equal([]byte(got), []byte(expected)) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	return c.Next()
}
