package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"userhub/internal/models"
	"userhub/internal/repositories"
)

// EventPublisher publishes user lifecycle events to a message broker.
// A nil publisher disables events entirely.
type EventPublisher interface {
	PublishUserEvent(action string, user models.User) error
}

// UserService handles business logic for the user collection: listing with
// an optional filter, id assignment, in-place updates and deletion. Every
// operation loads the whole collection, mutates a local copy and writes the
// whole collection back.
type UserService struct {
	repo   repositories.UserRepository
	events EventPublisher
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(repo repositories.UserRepository, events EventPublisher) *UserService {
	return &UserService{
		repo:   repo,
		events: events,
	}
}

// List returns the stored users, optionally filtered by a case-insensitive
// substring match on nickname.
func (s *UserService) List(c *fiber.Ctx, filter string) ([]models.User, error) {
	users, err := s.repo.Load(c)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return users, nil
	}

	needle := strings.ToLower(filter)
	filtered := make([]models.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Nickname), needle) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// Get returns the user with the given id, or repositories.ErrNotFound.
func (s *UserService) Get(c *fiber.Ctx, id int) (*models.User, error) {
	users, err := s.repo.Load(c)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", repositories.ErrNotFound, id)
}

// Create appends a new user with the next free id (max existing id + 1) and
// persists the collection.
func (s *UserService) Create(c *fiber.Ctx, form models.UserForm) (*models.User, error) {
	users, err := s.repo.Load(c)
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, u := range users {
		if u.ID > maxID {
			maxID = u.ID
		}
	}

	user := models.User{
		ID:       maxID + 1,
		Nickname: form.Nickname,
		Email:    form.Email,
	}
	users = append(users, user)

	if err := s.repo.SaveAll(c, users); err != nil {
		return nil, err
	}
	s.publish("created", user)
	return &user, nil
}

// Update overwrites nickname and email of an existing user in place. The id
// never changes. Returns repositories.ErrNotFound for unknown ids.
func (s *UserService) Update(c *fiber.Ctx, id int, form models.UserForm) (*models.User, error) {
	users, err := s.repo.Load(c)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].ID != id {
			continue
		}
		users[i].Nickname = form.Nickname
		users[i].Email = form.Email
		if err := s.repo.SaveAll(c, users); err != nil {
			return nil, err
		}
		s.publish("updated", users[i])
		return &users[i], nil
	}
	return nil, fmt.Errorf("%w: id %d", repositories.ErrNotFound, id)
}

// Delete removes the first user matching the id and persists the collection.
// Deleting an absent id is a silent no-op: the store is left unchanged and
// no error is reported.
func (s *UserService) Delete(c *fiber.Ctx, id int) error {
	users, err := s.repo.Load(c)
	if err != nil {
		return err
	}

	for i, u := range users {
		if u.ID != id {
			continue
		}
		users = append(users[:i], users[i+1:]...)
		if err := s.repo.SaveAll(c, users); err != nil {
			return err
		}
		s.publish("deleted", u)
		return nil
	}
	return nil
}

// publish sends a lifecycle event if a publisher is configured. Event
// failures are logged and swallowed: the collection is already persisted and
// the broker being down must not fail the request.
func (s *UserService) publish(action string, user models.User) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishUserEvent(action, user); err != nil {
		log.Printf("Failed to publish user %s event for id %d: %v", action, user.ID, err)
	}
}
