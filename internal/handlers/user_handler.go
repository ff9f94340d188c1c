package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"userhub/internal/flash"
	"userhub/internal/models"
	"userhub/internal/repositories"
	"userhub/internal/services"
)

// UserHandler handles the user CRUD routes: listing with an optional
// nickname filter, the create/edit forms and their submissions, the detail
// view and deletion.
type UserHandler struct {
	service  *services.UserService
	sessions *session.Store
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, sessions *session.Store) *UserHandler {
	return &UserHandler{
		service:  service,
		sessions: sessions,
	}
}

// RegisterRoutes registers the user routes with the Fiber app. listGuards
// are prepended to the listing routes only; the other routes stay ungated.
func (h *UserHandler) RegisterRoutes(router fiber.Router, listGuards ...fiber.Handler) {
	list := append(append([]fiber.Handler{}, listGuards...), h.HandleIndex)
	router.Get("/", list...)
	router.Get("/users", list...)

	// /users/new must be registered before /users/:id.
	router.Get("/users/new", h.HandleNew)
	router.Post("/users", h.HandleCreate)
	router.Post("/users/new", h.HandleCreate)
	router.Get("/users/:id", h.HandleShow)
	router.Get("/users/:id/edit", h.HandleEdit)
	router.Put("/users/:id", h.HandleUpdate)
	router.Delete("/users/:id", h.HandleDelete)
}

// HandleIndex renders the user list, filtered by the username query
// parameter when present (case-insensitive substring match on nickname).
func (h *UserHandler) HandleIndex(c *fiber.Ctx) error {
	filter := c.Query("username")
	users, err := h.service.List(c, filter)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return fiber.ErrInternalServerError
	}

	flashes, err := h.popFlashes(c)
	if err != nil {
		log.Printf("Error reading flash messages: %v", err)
		return fiber.ErrInternalServerError
	}

	return c.Render("users/index", fiber.Map{
		"Users":    users,
		"Username": filter,
		"Flashes":  flashes,
	})
}

// HandleNew renders the empty create form.
func (h *UserHandler) HandleNew(c *fiber.Ctx) error {
	return c.Render("users/new", fiber.Map{
		"Form":   models.UserForm{},
		"Errors": map[string]string{},
	})
}

// HandleCreate validates the submitted form and appends a new user. On
// validation failure the form is re-rendered with field errors and a 422
// status; on success the user gets the next free id and the client is
// redirected to the list.
func (h *UserHandler) HandleCreate(c *fiber.Ctx) error {
	var form models.UserForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing create form: %v", err)
		// Fall through with an empty form; validation reports the fields.
	}

	if errs := services.ValidateUserForm(form); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).Render("users/new", fiber.Map{
			"Form":   form,
			"Errors": errs,
		})
	}

	user, err := h.service.Create(c, form)
	if err != nil {
		log.Printf("Error creating user: %v", err)
		return fiber.ErrInternalServerError
	}

	if err := h.addFlash(c, "success", "User has been created"); err != nil {
		log.Printf("Error adding flash message: %v", err)
	}
	log.Printf("Created user %d (%s)", user.ID, user.Nickname)
	return c.Redirect("/users", fiber.StatusFound)
}

// HandleShow renders the detail view for one user, or a bare 404 when the
// id is unknown or not numeric.
func (h *UserHandler) HandleShow(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	user, err := h.service.Get(c, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		log.Printf("Error getting user %d: %v", id, err)
		return fiber.ErrInternalServerError
	}

	flashes, err := h.popFlashes(c)
	if err != nil {
		log.Printf("Error reading flash messages: %v", err)
		return fiber.ErrInternalServerError
	}

	return c.Render("users/show", fiber.Map{
		"User":    user,
		"Flashes": flashes,
	})
}

// HandleEdit renders the edit form pre-filled with the stored values.
func (h *UserHandler) HandleEdit(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	user, err := h.service.Get(c, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		log.Printf("Error getting user %d: %v", id, err)
		return fiber.ErrInternalServerError
	}

	return c.Render("users/edit", fiber.Map{
		"ID":     user.ID,
		"Form":   models.UserForm{Nickname: user.Nickname, Email: user.Email},
		"Errors": map[string]string{},
	})
}

// HandleUpdate overwrites nickname and email of an existing user. 404 when
// the id is unknown, 422 with the re-rendered form on validation failure,
// redirect to the detail view on success.
func (h *UserHandler) HandleUpdate(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	var form models.UserForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing update form: %v", err)
	}

	if errs := services.ValidateUserForm(form); len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).Render("users/edit", fiber.Map{
			"ID":     id,
			"Form":   form,
			"Errors": errs,
		})
	}

	user, err := h.service.Update(c, id, form)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		log.Printf("Error updating user %d: %v", id, err)
		return fiber.ErrInternalServerError
	}

	if err := h.addFlash(c, "success", "User has been updated"); err != nil {
		log.Printf("Error adding flash message: %v", err)
	}
	return c.Redirect("/users/"+strconv.Itoa(user.ID), fiber.StatusFound)
}

// HandleDelete removes the user and redirects to the list. Deleting an
// absent id leaves the store unchanged and still redirects.
func (h *UserHandler) HandleDelete(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}

	if err := h.service.Delete(c, id); err != nil {
		log.Printf("Error deleting user %d: %v", id, err)
		return fiber.ErrInternalServerError
	}

	if err := h.addFlash(c, "success", "User has been deleted"); err != nil {
		log.Printf("Error adding flash message: %v", err)
	}
	return c.Redirect("/users", fiber.StatusFound)
}

// parseID normalizes the id route parameter to an int at the boundary, so
// every lookup below uses exact integer equality.
func parseID(c *fiber.Ctx) (int, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *UserHandler) addFlash(c *fiber.Ctx, category, message string) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	if err := flash.Add(sess, category, message); err != nil {
		return err
	}
	return sess.Save()
}

func (h *UserHandler) popFlashes(c *fiber.Ctx) (map[string][]string, error) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return nil, err
	}
	flashes, err := flash.Pop(sess)
	if err != nil {
		return nil, err
	}
	if err := sess.Save(); err != nil {
		return nil, err
	}
	return flashes, nil
}
