package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/items/:id", "204"))

	for _, id := range []string{"1", "2"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/items/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	after := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/items/:id", "204"))
	assert.Equal(t, 2.0, after-before)
	assert.Equal(t, 0.0, testutil.ToFloat64(RequestsInFlight))
}
