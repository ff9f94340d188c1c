package repositories

import (
	"sync"

	"github.com/gofiber/fiber/v2"

	"userhub/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// The mutex only guards against the server's own request concurrency; the
// load-mutate-save cycle above it is still last-write-wins.
type MockUserRepository struct {
	users []models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: []models.User{}}
}

// Load returns a copy of the stored collection.
func (r *MockUserRepository) Load(_ *fiber.Ctx) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

// SaveAll replaces the stored collection.
func (r *MockUserRepository) SaveAll(_ *fiber.Ctx, users []models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make([]models.User, len(users))
	copy(r.users, users)
	return nil
}
