package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitByIP(t *testing.T) {
	rl := NewIPRateLimiter(1, 2, time.Minute)
	app := fiber.New()
	app.Post("/vote", RateLimitByIP(rl), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/vote", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusCreated, fiber.StatusCreated, fiber.StatusTooManyRequests}, codes)
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	rl := NewIPRateLimiter(60, 1, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.getLimiter("1.1.1.1")
	rl.getLimiter("2.2.2.2")
	assert.Len(t, rl.visitors, 2)

	clock = clock.Add(2 * time.Minute)
	rl.getLimiter("2.2.2.2")
	assert.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "2.2.2.2")
}
