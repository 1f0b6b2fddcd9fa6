package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// AdminAuth protects mutating routes with a shared token. An empty token
// disables the check; the startup log warns about that.
func AdminAuth(adminToken string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if adminToken == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				if constantTimeCompare(parts[1], adminToken) {
					return c.Next()
				}
			}
		}

		if token := c.Get("X-Admin-Token"); token != "" {
			if constantTimeCompare(token, adminToken) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "valid admin token required, use 'Authorization: Bearer <token>' or 'X-Admin-Token: <token>'",
		})
	}
}

// constantTimeCompare performs constant-time string comparison to prevent timing attacks
func constantTimeCompare(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
