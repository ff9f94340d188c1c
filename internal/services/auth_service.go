package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/middleware/session"
)

// ErrEmptyLogin is returned when a submitted login name trims to nothing.
var ErrEmptyLogin = errors.New("login name is empty")

const loginKey = "login"

// AuthService handles the session login marker. There is no credential
// check: any name that is nonempty after trimming is accepted. The session
// is the only state.
type AuthService struct{}

// NewAuthService creates a new AuthService.
func NewAuthService() *AuthService {
	return &AuthService{}
}

// Login stores the trimmed name as the session login marker. The caller is
// responsible for saving the session (fiber releases a session instance on
// Save, so only the handler may call it).
func (s *AuthService) Login(sess *session.Session, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyLogin
	}
	sess.Set(loginKey, name)
	return nil
}

// Logout destroys the session, clearing all of its state.
func (s *AuthService) Logout(sess *session.Session) error {
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether the session carries a login marker.
func (s *AuthService) IsAuthenticated(sess *session.Session) bool {
	name, ok := sess.Get(loginKey).(string)
	return ok && name != ""
}

// CurrentLogin returns the login marker, or "" when not logged in.
func (s *AuthService) CurrentLogin(sess *session.Session) string {
	name, _ := sess.Get(loginKey).(string)
	return name
}
