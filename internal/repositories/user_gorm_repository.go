package repositories

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"userhub/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository. It keeps
// the same whole-collection contract as the blob backends: Load selects all
// rows and SaveAll replaces the table contents in one transaction, so last
// write still wins.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{db: db}
}

// Load reads the full user collection, ordered by id.
func (r *GORMUserRepository) Load(_ *fiber.Ctx) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

// SaveAll replaces the stored collection with the given one.
func (r *GORMUserRepository) SaveAll(_ *fiber.Ctx, users []models.User) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.User{}).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		return tx.Create(&users).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}
