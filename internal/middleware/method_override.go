package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// MethodOverride rewrites POST requests carrying a _method form field so
// that plain HTML forms can reach the PUT and DELETE routes.
func MethodOverride() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost {
			switch strings.ToUpper(c.FormValue("_method")) {
			case fiber.MethodPut:
				c.Method(fiber.MethodPut)
			case fiber.MethodDelete:
				c.Method(fiber.MethodDelete)
			}
		}
		return c.Next()
	}
}
