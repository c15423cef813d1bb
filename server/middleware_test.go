package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Endy02/microservice/auth"
	"github.com/Endy02/microservice/config"
	"github.com/Endy02/microservice/server"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SigningKey:             "test-signing-key",
		AccessTokenExpiration:  30,
		RefreshTokenExpiration: 72,
		StateTokenExpiration:   3600,
		Issuer:                 "test-issuer",
		Audience:               []string{"test-app"},
		ContextKey:             "user",
		AuthScheme:             "Bearer",
		Domain:                 "example.com",
	}
}

func newProtectedApp(t *testing.T, staffOnly bool) (*fiber.App, *auth.TokenService) {
	t.Helper()

	cfg := testAuthConfig()
	tokens := auth.NewTokenService(cfg, nil)

	app := fiber.New()
	handlers := []fiber.Handler{server.RequireAuth(tokens, cfg)}
	if staffOnly {
		handlers = append(handlers, server.RequireStaff(cfg))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		claims := server.ClaimsFromLocals(c, cfg.ContextKey)
		require.NotNil(t, claims)
		return c.JSON(fiber.Map{"uid": claims.UserID()})
	})

	app.Get("/protected", handlers...)
	return app, tokens
}

func doRequest(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRequireAuthMissingHeader(t *testing.T) {
	app, _ := newProtectedApp(t, false)

	resp := doRequest(t, app, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	app, _ := newProtectedApp(t, false)

	for _, header := range []string{"Bearer", "Bearer ", "Basic abc123", "garbage"} {
		resp := doRequest(t, app, header)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "header %q", header)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	app, tokens := newProtectedApp(t, false)

	token, err := tokens.SignAccess(&auth.User{ID: uuid.New(), IsActive: true})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	app, tokens := newProtectedApp(t, false)

	pair, err := tokens.GeneratePair(&auth.User{ID: uuid.New(), IsActive: true})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+pair.RefreshToken)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireStaff(t *testing.T) {
	app, tokens := newProtectedApp(t, true)

	member, err := tokens.SignAccess(&auth.User{ID: uuid.New(), IsActive: true})
	require.NoError(t, err)

	resp := doRequest(t, app, "Bearer "+member)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	staff, err := tokens.SignAccess(&auth.User{ID: uuid.New(), IsActive: true, IsStaff: true})
	require.NoError(t, err)

	resp = doRequest(t, app, "Bearer "+staff)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
