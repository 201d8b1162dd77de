package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequireAdminKey guards the admin routes with a static bearer key.
// An empty key disables the check, for local development.
func RequireAdminKey(apiKey string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiKey == "" {
		logger.Warn("ADMIN_API_KEY not set - admin routes are unauthenticated")
	}

	return func(c *fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}

		auth := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing admin credentials",
			})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			logger.Warn("Rejected admin request", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid admin credentials",
			})
		}

		return c.Next()
	}
}
