package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"userhub/internal/models"
)

// FileUserRepository persists the user collection as a single JSON array in
// a flat file. A missing or empty file reads as an empty collection; writes
// overwrite the whole file. There is no locking, so concurrent writers can
// lose updates.
type FileUserRepository struct {
	path string
}

// NewFileUserRepository creates a new instance of FileUserRepository.
func NewFileUserRepository(path string) *FileUserRepository {
	return &FileUserRepository{path: path}
}

// Load reads the full user collection from the backing file.
func (r *FileUserRepository) Load(_ *fiber.Ctx) ([]models.User, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.User{}, nil
		}
		return nil, fmt.Errorf("failed to read user file %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, r.path, err)
	}
	return users, nil
}

// SaveAll serializes the full collection back to the file, replacing any
// prior content.
func (r *FileUserRepository) SaveAll(_ *fiber.Ctx, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write user file %s: %w", r.path, err)
	}
	return nil
}
