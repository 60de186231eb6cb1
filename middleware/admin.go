package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AdminIDHeader = "X-Admin-ID"
	adminIDKey    = "admin_id"
)

// AdminTokenMiddleware validates the Bearer service token of the admin API.
// An empty expected token rejects every request.
func AdminTokenMiddleware(expectedToken string, log *zap.Logger) fiber.Handler {
	if expectedToken == "" {
		log.Warn("ADMIN_SERVICE_TOKEN is not set, admin API is disabled")
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Warn("admin token missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "admin authentication token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Warn("admin token invalid", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid admin authentication token",
			})
		}

		adminID := c.Get(AdminIDHeader)
		if adminID == "" {
			adminID = "service"
		}
		c.Locals(adminIDKey, adminID)
		return c.Next()
	}
}

// AdminIDFrom returns the acting admin recorded by AdminTokenMiddleware.
func AdminIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(adminIDKey).(string)
	return id
}
