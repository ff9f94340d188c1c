package repositories

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"userhub/internal/models"
)

var (
	// ErrNotFound is returned when a user id is not present in the store.
	ErrNotFound = errors.New("user not found")
	// ErrStorageCorrupt is returned when the backing blob exists but does
	// not parse as a JSON user array.
	ErrStorageCorrupt = errors.New("user storage corrupt")
)

// UserRepository defines the interface for user data access. The collection
// is read and written as a whole: Load returns every stored user and SaveAll
// replaces the previous contents entirely (last write wins, no merge).
//
// The fiber context is required by the cookie-backed implementation, which
// reads the request cookie and writes the response cookie; the other
// implementations ignore it and accept nil.
type UserRepository interface {
	Load(c *fiber.Ctx) ([]models.User, error)
	SaveAll(c *fiber.Ctx, users []models.User) error
}
