// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts user identity and roles set by the
// Gateway and requires them on the route it guards.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}

// OptionalUserContext attaches identity when the Gateway forwarded one,
// but lets anonymous requests through. Used on public read routes that
// show extra detail to team members.
func OptionalUserContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID := c.Get("X-User-ID"); userID != "" {
			c.Locals("user_id", userID)
		}
		return c.Next()
	}
}

// AdminOnlyMiddleware lets only users carrying the admin role through.
// Must run after UserContextMiddleware.
func AdminOnlyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == "admin" {
				return c.Next()
			}
		}
		log.Printf("🚫 [ADMIN] User %v denied admin route %s", c.Locals("user_id"), c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "admin role required",
		})
	}
}
