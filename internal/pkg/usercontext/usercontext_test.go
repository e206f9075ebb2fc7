package usercontext

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserContextDefaultsToAnonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		ctx := GetUserContext(c)
		assert.False(t, ctx.IsLoggedIn)
		assert.False(t, IsAdmin(c))
		assert.Equal(t, uint(0), GetUserID(c))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHelpersReadStoredContext(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(KeyUserContext, UserContext{
			UserID:     42,
			Email:      "bd@example.com",
			IsLoggedIn: true,
			IsAdmin:    true,
			Plan:       "premium",
		})
		return c.Next()
	})
	app.Get("/", func(c *fiber.Ctx) error {
		assert.Equal(t, uint(42), GetUserID(c))
		assert.True(t, IsAdmin(c))
		assert.Equal(t, "premium", GetUserContext(c).Plan)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
