package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"userhub/internal/services"
)

// LoginRequired is a Fiber middleware that redirects requests without a
// session login marker to the login page. It is attached per route, not
// globally: only the listing routes are gated, and only in the cookie
// storage variant.
func LoginRequired(store *session.Store, authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			log.Printf("Failed to load session: %v", err)
			return c.Redirect("/login", fiber.StatusFound)
		}
		if !authService.IsAuthenticated(sess) {
			return c.Redirect("/login", fiber.StatusFound)
		}
		return c.Next()
	}
}
