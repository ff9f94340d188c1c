package handlers_test

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"
	"github.com/stretchr/testify/assert"

	"userhub/internal/handlers"
	"userhub/internal/middleware"
	"userhub/internal/models"
	"userhub/internal/repositories"
	"userhub/internal/services"
)

// setupApp wires the full handler stack against an in-memory repository and
// the real templates. gated mirrors the cookie variant, where the listing
// routes sit behind the login check.
func setupApp(repo repositories.UserRepository, gated bool) *fiber.App {
	sessions := session.New()
	userService := services.NewUserService(repo, nil)
	authService := services.NewAuthService()

	userHandler := handlers.NewUserHandler(userService, sessions)
	authHandler := handlers.NewAuthHandler(authService, sessions)

	engine := html.New("../../views", ".html")
	app := fiber.New(fiber.Config{
		Views:       engine,
		ViewsLayout: "layouts/main",
	})
	app.Use(middleware.MethodOverride())

	authHandler.RegisterRoutes(app)
	var listGuards []fiber.Handler
	if gated {
		listGuards = append(listGuards, middleware.LoginRequired(sessions, authService))
	}
	userHandler.RegisterRoutes(app, listGuards...)

	return app
}

func seedRepo(t *testing.T, repo repositories.UserRepository, users []models.User) {
	t.Helper()
	if err := repo.SaveAll(nil, users); err != nil {
		t.Fatalf("failed to seed repository: %v", err)
	}
}

func formRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body.Close()
	return string(body)
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestListUsers(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{
		{ID: 1, Nickname: "Alice", Email: "alice@example.com"},
		{ID: 2, Nickname: "bob", Email: "bob@example.com"},
	})
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "bob")

	// Root serves the same listing.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestListUsersFilter(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{
		{ID: 1, Nickname: "Alice", Email: "alice@example.com"},
		{ID: 2, Nickname: "bob", Email: "bob@example.com"},
	})
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users?username=ali", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Alice")
	assert.NotContains(t, body, "bob@example.com")
	// The filter term is echoed back into the search box.
	assert.Contains(t, body, `value="ali"`)
}

func TestCreateUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPost, "/users", "nickname=alice-in-chains&email=alice@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))
	resp.Body.Close()

	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, users[0].ID)
	assert.Equal(t, "alice-in-chains", users[0].Nickname)

	// The alternate form action works too.
	resp, err = app.Test(formRequest(http.MethodPost, "/users/new", "nickname=bobby-tables&email=bob@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	users, err = repo.Load(nil)
	assert.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, users[1].ID)
}

func TestCreateUserValidationFailure(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPost, "/users", "nickname=bob&email=bob@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "must be at least 5 characters")
	// Submitted values are echoed back into the form.
	assert.Contains(t, body, `value="bob"`)

	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Empty(t, users)
}

func TestShowUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{{ID: 7, Nickname: "Alice", Email: "alice@example.com"}})
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/7", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "alice@example.com")
}

func TestShowUserNotFound(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/99", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Non-numeric ids 404 at the boundary, before any lookup.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/users/abc", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestEditForm(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{{ID: 1, Nickname: "Alice", Email: "alice@example.com"}})
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/1/edit", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, `value="Alice"`)
	assert.Contains(t, body, `value="alice@example.com"`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/users/99/edit", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{{ID: 1, Nickname: "Alice", Email: "alice@example.com"}})
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPut, "/users/1", "nickname=alice-cooper&email=cooper@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users/1", resp.Header.Get("Location"))
	resp.Body.Close()

	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, users[0].ID)
	assert.Equal(t, "alice-cooper", users[0].Nickname)
	assert.Equal(t, "cooper@example.com", users[0].Email)
}

func TestUpdateUserViaMethodOverride(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{{ID: 1, Nickname: "Alice", Email: "alice@example.com"}})
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPost, "/users/1", "_method=PUT&nickname=alice-cooper&email=cooper@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Equal(t, "alice-cooper", users[0].Nickname)
}

func TestUpdateUserValidationFailure(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{{ID: 1, Nickname: "Alice", Email: "alice@example.com"}})
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPut, "/users/1", "nickname=alice-cooper&email="), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "can&#39;t be blank")

	// Nothing was persisted.
	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Equal(t, "Alice", users[0].Nickname)
}

func TestUpdateUserNotFound(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPut, "/users/99", "nickname=alice-cooper&email=cooper@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{
		{ID: 1, Nickname: "Alice", Email: "alice@example.com"},
		{ID: 2, Nickname: "bobby", Email: "bob@example.com"},
	})
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/users/1", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))
	resp.Body.Close()

	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 2, users[0].ID)
}

func TestDeleteAbsentUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	seedRepo(t, repo, []models.User{{ID: 1, Nickname: "Alice", Email: "alice@example.com"}})
	app := setupApp(repo, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/users/99", nil), -1)
	assert.NoError(t, err)
	// Still redirects; the store is untouched.
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp.Body.Close()

	users, err := repo.Load(nil)
	assert.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestFlashShownAfterCreate(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPost, "/users", "nickname=alice-in-chains&email=alice@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			cookie = c
		}
	}
	assert.NotNil(t, cookie)
	resp.Body.Close()

	// Following the redirect shows the flash once.
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	body := readBody(t, resp)
	assert.Contains(t, body, "User has been created")

	// A reload no longer shows it.
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	body = readBody(t, resp)
	assert.NotContains(t, body, "User has been created")
}

func TestLoginGateOnCookieVariant(t *testing.T) {
	repo := repositories.NewCookieUserRepository("users")
	app := setupApp(repo, true)

	// Unauthenticated listing requests bounce to the login page.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	// Logging in with any nonempty name opens the gate.
	resp, err = app.Test(formRequest(http.MethodPost, "/login", "name=admin"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/users", resp.Header.Get("Location"))
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			cookie = c
		}
	}
	assert.NotNil(t, cookie)
	resp.Body.Close()

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The gate only covers the listing routes.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/users/new", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginValidation(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo, false)

	resp, err := app.Test(formRequest(http.MethodPost, "/login", "name=   "), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "can&#39;t be blank")
}

func TestLogout(t *testing.T) {
	repo := repositories.NewCookieUserRepository("users")
	app := setupApp(repo, true)

	resp, err := app.Test(formRequest(http.MethodPost, "/login", "name=admin"), -1)
	assert.NoError(t, err)
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			cookie = c
		}
	}
	assert.NotNil(t, cookie)
	resp.Body.Close()

	req := formRequest(http.MethodPost, "/logout", "")
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()

	// The old session no longer passes the gate.
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	resp.Body.Close()
}

func TestCreateThenListOnCookieVariant(t *testing.T) {
	repo := repositories.NewCookieUserRepository("users")
	app := setupApp(repo, true)

	// Creating writes the whole collection into the response cookie.
	resp, err := app.Test(formRequest(http.MethodPost, "/users", "nickname=alice-in-chains&email=alice@example.com"), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	var usersCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "users" {
			usersCookie = c
		}
	}
	assert.NotNil(t, usersCookie)
	resp.Body.Close()

	// A second create on top of the returned cookie appends id 2.
	req := formRequest(http.MethodPost, "/users", "nickname=bobby-tables&email=bob@example.com")
	req.AddCookie(usersCookie)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == "users" {
			usersCookie = c
		}
	}
	resp.Body.Close()

	assert.Contains(t, usersCookie.Value, "bobby-tables")
	assert.Contains(t, usersCookie.Value, "%22id%22%3A2")
}
