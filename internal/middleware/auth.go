package middleware

import (
	"strings"

	"agrimarket-backend/internal/credentials"
	"agrimarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const authLocal = "auth"

// RequireAuth verifies the Bearer access token and attaches its claims
// to Locals. Returns 401 with the standard error format otherwise.
func RequireAuth(mgr *credentials.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return response.Unauthorized(c, "Unauthorized")
		}
		claims, err := mgr.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(authLocal, claims)
		return c.Next()
	}
}

// GetClaims returns the verified access claims from Locals (nil if the
// request is unauthenticated).
func GetClaims(c *fiber.Ctx) *credentials.AccessClaims {
	claims, _ := c.Locals(authLocal).(*credentials.AccessClaims)
	return claims
}
