package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestAllowExhaustsBurstPerKey(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("a"), "request %d", i)
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestCleanupDropsIdleEntries(t *testing.T) {
	rl := New(Config{IdleTTL: time.Minute})
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	require.Equal(t, 2, rl.size())

	rl.cleanup(time.Now())
	assert.Equal(t, 2, rl.size())

	rl.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.size())
}

func TestStopEndsCleanupGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := New(Config{CleanupInterval: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	rl.Stop()
	rl.Stop()
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1})
	defer rl.Stop()

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "user-1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "user-2")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareKeysSurviveBufferReuse(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1})
	defer rl.Stop()

	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for _, user := range []string{"alice", "bobby"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User-ID", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, user)
	}

	assert.ElementsMatch(t, []string{"alice", "bobby"}, rl.keys())
}
