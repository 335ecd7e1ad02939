package middleware

import (
	"crypto/subtle"
	"strings"

	"goat-rush/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AdminAuthMiddleware validates the admin Bearer token. With no token
// configured every admin request is refused.
func AdminAuthMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		logger.Warn("[ADMIN_AUTH] ADMIN_TOKEN is not set, admin routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "admin routes are disabled",
			})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			logger.WithFields(logrus.Fields{"path": c.Path()}).Warn("[ADMIN_AUTH] missing Authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.WithFields(logrus.Fields{"path": c.Path(), "ip": c.IP()}).Warn("[ADMIN_AUTH] invalid token")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Unauthorized: Admin access required",
			})
		}

		return c.Next()
	}
}
