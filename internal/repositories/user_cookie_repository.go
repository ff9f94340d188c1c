package repositories

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"userhub/internal/models"
)

// CookieUserRepository persists the user collection as a JSON array inside a
// cookie on the client. The payload is URL-escaped because raw JSON is not
// valid cookie-octet data; after unescaping it is the same array the file
// backend writes. Each request carries the whole collection both ways.
type CookieUserRepository struct {
	name string
}

// NewCookieUserRepository creates a new instance of CookieUserRepository.
func NewCookieUserRepository(name string) *CookieUserRepository {
	return &CookieUserRepository{name: name}
}

// Load reads the user collection from the request cookie. An absent or
// empty cookie reads as an empty collection.
func (r *CookieUserRepository) Load(c *fiber.Ctx) ([]models.User, error) {
	raw := c.Cookies(r.name)
	if raw == "" {
		return []models.User{}, nil
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: cookie %s: %v", ErrStorageCorrupt, r.name, err)
	}

	var users []models.User
	if err := json.Unmarshal([]byte(decoded), &users); err != nil {
		return nil, fmt.Errorf("%w: cookie %s: %v", ErrStorageCorrupt, r.name, err)
	}
	return users, nil
}

// SaveAll writes the full collection back to the response cookie, replacing
// whatever value the client held before.
func (r *CookieUserRepository) SaveAll(c *fiber.Ctx, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     r.name,
		Value:    url.QueryEscape(string(data)),
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HTTPOnly: true,
	})
	return nil
}
