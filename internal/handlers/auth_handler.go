package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"userhub/internal/flash"
	"userhub/internal/services"
)

// AuthHandler handles the login and logout routes.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *session.Store
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, sessions *session.Store) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/login", h.HandleLoginForm)
	router.Post("/login", h.HandleLogin)
	router.Post("/logout", h.HandleLogout)
}

// HandleLoginForm renders the login page.
func (h *AuthHandler) HandleLoginForm(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		return fiber.ErrInternalServerError
	}
	flashes, err := flash.Pop(sess)
	if err != nil {
		log.Printf("Error reading flash messages: %v", err)
		return fiber.ErrInternalServerError
	}
	if err := sess.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
		return fiber.ErrInternalServerError
	}

	return c.Render("login", fiber.Map{
		"Error":   "",
		"Flashes": flashes,
	})
}

// HandleLogin accepts any name that is nonempty after trimming, stores it as
// the session login marker and redirects to the list. An empty name
// re-renders the form with a 422 status.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		return fiber.ErrInternalServerError
	}

	name := c.FormValue("name")
	if err := h.authService.Login(sess, name); err != nil {
		if errors.Is(err, services.ErrEmptyLogin) {
			return c.Status(fiber.StatusUnprocessableEntity).Render("login", fiber.Map{
				"Error":   "can't be blank",
				"Flashes": map[string][]string{},
			})
		}
		log.Printf("Error during login: %v", err)
		return fiber.ErrInternalServerError
	}

	if err := flash.Add(sess, "success", "You are logged in"); err != nil {
		log.Printf("Error adding flash message: %v", err)
	}
	if err := sess.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
		return fiber.ErrInternalServerError
	}
	return c.Redirect("/users", fiber.StatusFound)
}

// HandleLogout clears all session state and redirects to the login page.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		return fiber.ErrInternalServerError
	}
	if err := h.authService.Logout(sess); err != nil {
		log.Printf("Error during logout: %v", err)
		return fiber.ErrInternalServerError
	}
	return c.Redirect("/login", fiber.StatusFound)
}
