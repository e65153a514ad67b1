package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeContacts map[string]string

func (f fakeContacts) Remember(_ context.Context, userID, email string) error {
	f[userID] = email
	return nil
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newApp(contacts ContactRecorder) *fiber.App {
	app := fiber.New()
	app.Get("/me", Protected(testSecret, contacts), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("role"),
			"email":   c.Locals("email"),
		})
	})
	app.Get("/admin", Protected(testSecret, nil), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestProtectedAcceptsValidToken(t *testing.T) {
	contacts := fakeContacts{}
	app := newApp(contacts)

	token := sign(t, testSecret, jwt.MapClaims{
		"sub":   "user-42",
		"email": "user42@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	assert.Equal(t, fiber.StatusOK, get(t, app, "/me", token))
	assert.Equal(t, "user42@example.com", contacts["user-42"])
}

func TestProtectedAcceptsNumericUserID(t *testing.T) {
	app := newApp(nil)
	token := sign(t, testSecret, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, fiber.StatusOK, get(t, app, "/me", token))
}

func TestProtectedRejectsBadTokens(t *testing.T) {
	app := newApp(nil)

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", "garbage"))

	wrongKey := sign(t, "other-secret", jwt.MapClaims{"sub": "u1"})
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", wrongKey))

	expired := sign(t, testSecret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", expired))

	noSubject := sign(t, testSecret, jwt.MapClaims{"email": "x@example.com"})
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "/me", noSubject))
}

func TestAdminOnly(t *testing.T) {
	app := newApp(nil)

	user := sign(t, testSecret, jwt.MapClaims{"sub": "u1", "role": "user"})
	assert.Equal(t, fiber.StatusForbidden, get(t, app, "/admin", user))

	admin := sign(t, testSecret, jwt.MapClaims{"sub": "a1", "role": "admin"})
	assert.Equal(t, fiber.StatusNoContent, get(t, app, "/admin", admin))
}
