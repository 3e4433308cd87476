package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"Backend-PollSurvey/src/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAuthApp(t *testing.T) (*fiber.App, *utils.JWTManager) {
	t.Helper()
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	auth := NewAuth(jwt, utils.NewTokenBlacklist(nil))

	app := fiber.New()
	whoami := func(c *fiber.Ctx) error {
		id := IdentityFrom(c)
		if id.UserID.IsZero() {
			return c.SendString("anonymous")
		}
		return c.SendString(id.Email)
	}
	app.Get("/private", auth.AuthJWT, whoami)
	app.Get("/optional", auth.OptionalAuthJWT, whoami)
	return app, jwt
}

func call(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthJWT(t *testing.T) {
	app, jwt := newAuthApp(t)
	token, err := jwt.Generate(primitive.NewObjectID().Hex(), "a@x.com")
	require.NoError(t, err)

	status, body := call(t, app, "/private", token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "a@x.com", body)

	status, _ = call(t, app, "/private", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = call(t, app, "/private", "bad.token")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	notAnObjectID, err := jwt.Generate("42", "a@x.com")
	require.NoError(t, err)
	status, _ = call(t, app, "/private", notAnObjectID)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestOptionalAuthJWT(t *testing.T) {
	app, jwt := newAuthApp(t)
	token, err := jwt.Generate(primitive.NewObjectID().Hex(), "a@x.com")
	require.NoError(t, err)

	_, body := call(t, app, "/optional", "")
	assert.Equal(t, "anonymous", body)

	_, body = call(t, app, "/optional", "bad.token")
	assert.Equal(t, "anonymous", body)

	_, body = call(t, app, "/optional", token)
	assert.Equal(t, "a@x.com", body)
}
